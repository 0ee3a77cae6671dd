package detect

import (
	"sort"

	"subscan-server/src/models"
)

// Plan is the insert/update decision set a scan applies in one transaction.
// Building it performs no I/O.
type Plan struct {
	ToInsert []models.Subscription
	ToUpdate []models.Subscription
}

// Size is the number of subscriptions the plan touches.
func (p Plan) Size() int {
	return len(p.ToInsert) + len(p.ToUpdate)
}

// BuildPlan compares freshly detected candidates against previously persisted
// subscriptions. Matching is on (merchant key, provider), with the same
// normalization applied to the persisted merchant name. Candidates below the
// confidence threshold are not actionable. An existing record is only updated
// when the new evidence is at least as confident, or when a more recent
// payment advances last_charge_date; a weaker rescan never downgrades an
// established subscription. Candidates from different providers are never
// merged.
func BuildPlan(userID int64, candidates []models.SubscriptionCandidate, existing []models.Subscription, threshold int) Plan {
	type matchKey struct {
		merchant string
		provider string
	}

	byKey := make(map[matchKey]models.Subscription, len(existing))
	for _, sub := range existing {
		byKey[matchKey{MerchantKey(sub.MerchantName), sub.Provider}] = sub
	}

	var plan Plan
	for _, c := range candidates {
		if c.Confidence < threshold {
			continue
		}

		cur, ok := byKey[matchKey{c.MerchantKey, c.Provider}]
		if !ok {
			plan.ToInsert = append(plan.ToInsert, models.Subscription{
				UserID:         userID,
				MerchantName:   c.DisplayName,
				Amount:         c.AverageAmount,
				Currency:       c.Currency,
				BillingCycle:   c.BillingCycle,
				LastChargeDate: c.LastSeen,
				Confidence:     c.Confidence,
				Provider:       c.Provider,
			})
			continue
		}

		if c.Confidence >= cur.Confidence || c.LastSeen.After(cur.LastChargeDate) {
			upd := cur
			upd.Amount = c.AverageAmount
			upd.BillingCycle = c.BillingCycle
			upd.Confidence = c.Confidence
			upd.LastChargeDate = c.LastSeen
			plan.ToUpdate = append(plan.ToUpdate, upd)
		}
	}

	sort.Slice(plan.ToInsert, func(i, j int) bool {
		a, b := plan.ToInsert[i], plan.ToInsert[j]
		if a.MerchantName != b.MerchantName {
			return a.MerchantName < b.MerchantName
		}
		return a.Provider < b.Provider
	})
	sort.Slice(plan.ToUpdate, func(i, j int) bool {
		return plan.ToUpdate[i].ID < plan.ToUpdate[j].ID
	})

	return plan
}
