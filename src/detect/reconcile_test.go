package detect

import (
	"testing"
	"time"

	"subscan-server/src/models"
)

func candidate(merchant, provider string, confidence int, lastSeen string) models.SubscriptionCandidate {
	d, err := time.Parse("2006-01-02", lastSeen)
	if err != nil {
		panic(err)
	}
	return models.SubscriptionCandidate{
		MerchantKey:   MerchantKey(merchant),
		DisplayName:   merchant,
		AverageAmount: 12.99,
		Currency:      "USD",
		BillingCycle:  models.CycleMonthly,
		Confidence:    confidence,
		SampleSize:    4,
		LastSeen:      d,
		Provider:      provider,
	}
}

func TestBuildPlan_InsertsNewMerchant(t *testing.T) {
	plan := BuildPlan(1, []models.SubscriptionCandidate{
		candidate("Netflix", "plaid", 89, "2025-04-01"),
	}, nil, 50)

	if len(plan.ToInsert) != 1 || len(plan.ToUpdate) != 0 {
		t.Fatalf("plan got inserts=%d updates=%d want 1/0", len(plan.ToInsert), len(plan.ToUpdate))
	}
	sub := plan.ToInsert[0]
	if sub.UserID != 1 || sub.MerchantName != "Netflix" || sub.Provider != "plaid" {
		t.Fatalf("unexpected insert: %+v", sub)
	}
	if sub.Confidence != 89 {
		t.Fatalf("Confidence got=%d want=89", sub.Confidence)
	}
}

func TestBuildPlan_IsIdempotent(t *testing.T) {
	c := candidate("Netflix", "plaid", 89, "2025-04-01")

	first := BuildPlan(1, []models.SubscriptionCandidate{c}, nil, 50)
	if len(first.ToInsert) != 1 {
		t.Fatalf("first run inserts got=%d want=1", len(first.ToInsert))
	}

	persisted := first.ToInsert[0]
	persisted.ID = 7

	second := BuildPlan(1, []models.SubscriptionCandidate{c}, []models.Subscription{persisted}, 50)
	if len(second.ToInsert) != 0 || len(second.ToUpdate) != 1 {
		t.Fatalf("second run got inserts=%d updates=%d want 0/1", len(second.ToInsert), len(second.ToUpdate))
	}

	upd := second.ToUpdate[0]
	if upd.Confidence != persisted.Confidence {
		t.Fatalf("confidence changed on identical rescan: got=%d want=%d", upd.Confidence, persisted.Confidence)
	}
	if !upd.LastChargeDate.Equal(persisted.LastChargeDate) {
		t.Fatalf("last charge date changed on identical rescan")
	}
	if upd.Amount != persisted.Amount || upd.BillingCycle != persisted.BillingCycle {
		t.Fatalf("observable fields changed on identical rescan: %+v", upd)
	}
}

func TestBuildPlan_WeakerRescanDoesNotDowngrade(t *testing.T) {
	existing := models.Subscription{
		ID:             3,
		UserID:         1,
		MerchantName:   "Netflix",
		Amount:         12.99,
		BillingCycle:   models.CycleMonthly,
		Confidence:     90,
		LastChargeDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Provider:       "plaid",
	}

	// Lower confidence and no newer payment: no update.
	plan := BuildPlan(1, []models.SubscriptionCandidate{
		candidate("Netflix", "plaid", 70, "2025-03-01"),
	}, []models.Subscription{existing}, 50)

	if len(plan.ToUpdate) != 0 || len(plan.ToInsert) != 0 {
		t.Fatalf("weaker rescan must be a no-op, got %+v", plan)
	}
}

func TestBuildPlan_FreshPaymentRefreshesDespiteLowerConfidence(t *testing.T) {
	existing := models.Subscription{
		ID:             3,
		UserID:         1,
		MerchantName:   "Netflix",
		Confidence:     90,
		LastChargeDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Provider:       "plaid",
	}

	plan := BuildPlan(1, []models.SubscriptionCandidate{
		candidate("Netflix", "plaid", 70, "2025-04-01"),
	}, []models.Subscription{existing}, 50)

	if len(plan.ToUpdate) != 1 {
		t.Fatalf("newer payment must refresh the record, got %+v", plan)
	}
	if got := plan.ToUpdate[0].LastChargeDate; !got.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("LastChargeDate got=%v", got)
	}
}

func TestBuildPlan_SkipsCandidatesBelowThreshold(t *testing.T) {
	plan := BuildPlan(1, []models.SubscriptionCandidate{
		candidate("Corner Shop", "plaid", 0, "2025-04-01"),
		candidate("Maybe Gym", "plaid", 49, "2025-04-01"),
	}, nil, 50)

	if plan.Size() != 0 {
		t.Fatalf("non-actionable candidates must be skipped, got %+v", plan)
	}
}

func TestBuildPlan_MatchesNormalizedMerchantNames(t *testing.T) {
	existing := models.Subscription{
		ID:           9,
		UserID:       1,
		MerchantName: "NETFLIX.COM 4029",
		Confidence:   80,
		Provider:     "plaid",
	}

	plan := BuildPlan(1, []models.SubscriptionCandidate{
		candidate("Netflix.com", "plaid", 89, "2025-04-01"),
	}, []models.Subscription{existing}, 50)

	if len(plan.ToInsert) != 0 || len(plan.ToUpdate) != 1 {
		t.Fatalf("normalized names must match, got %+v", plan)
	}
}

func TestBuildPlan_NeverMergesAcrossProviders(t *testing.T) {
	existing := models.Subscription{
		ID:           4,
		UserID:       1,
		MerchantName: "Spotify",
		Confidence:   88,
		Provider:     "plaid",
	}

	plan := BuildPlan(1, []models.SubscriptionCandidate{
		candidate("Spotify", "nordigen", 88, "2025-04-01"),
	}, []models.Subscription{existing}, 50)

	if len(plan.ToInsert) != 1 || len(plan.ToUpdate) != 0 {
		t.Fatalf("same merchant through another provider must insert, got %+v", plan)
	}
}
