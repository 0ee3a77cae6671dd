package scan

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"subscan-server/src/detect"
	"subscan-server/src/models"
)

type stubSource struct {
	name    string
	txns    []models.RawTransaction
	err     error
	release chan struct{} // when set, Transactions blocks until closed
}

func (s *stubSource) Name() string {
	if s.name == "" {
		return "plaid"
	}
	return s.name
}

func (s *stubSource) Transactions(ctx context.Context, userID int64) ([]models.RawTransaction, error) {
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.txns, nil
}

type stubStore struct {
	mu         sync.Mutex
	pending    bool
	pendingErr error
	subs       []models.Subscription
	applyErrs  []error

	nextSubID  int64
	applyCalls int
	created    int
	completed  bool
	foundCount int
	totalCost  float64
	failReason string
}

func (s *stubStore) HasPendingScan(ctx context.Context, userID int64) (bool, error) {
	return s.pending, s.pendingErr
}

func (s *stubStore) CreateScan(ctx context.Context, userID int64, provider string) (models.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	return models.ScanRecord{
		ID:        int64(s.created),
		UserID:    userID,
		Provider:  provider,
		Status:    models.ScanPending,
		StartedAt: time.Now(),
	}, nil
}

func (s *stubStore) CompleteScan(ctx context.Context, scanID int64, found int, totalMonthly float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
	s.foundCount = found
	s.totalCost = totalMonthly
	return nil
}

func (s *stubStore) FailScan(ctx context.Context, scanID int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReason = reason
	return nil
}

func (s *stubStore) ListSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Subscription, len(s.subs))
	copy(out, s.subs)
	return out, nil
}

func (s *stubStore) ApplyPlan(ctx context.Context, plan detect.Plan) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCalls++
	if len(s.applyErrs) > 0 {
		err := s.applyErrs[0]
		s.applyErrs = s.applyErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	var applied []models.Subscription
	for _, sub := range plan.ToInsert {
		s.nextSubID++
		sub.ID = s.nextSubID
		s.subs = append(s.subs, sub)
		applied = append(applied, sub)
	}
	for _, sub := range plan.ToUpdate {
		for i := range s.subs {
			if s.subs[i].ID == sub.ID {
				s.subs[i] = sub
			}
		}
		applied = append(applied, sub)
	}
	return applied, nil
}

func rawTx(merchant, date, amount string) models.RawTransaction {
	return models.RawTransaction{
		AccountID:    "acc-1",
		Provider:     "plaid",
		MerchantName: &merchant,
		Amount:       amount,
		Currency:     "USD",
		BookingDate:  date,
		ExternalID:   merchant + "-" + date,
	}
}

func monthlyNetflix() []models.RawTransaction {
	return []models.RawTransaction{
		rawTx("Netflix", "2025-01-01", "-12.99"),
		rawTx("Netflix", "2025-01-31", "-12.99"),
		rawTx("Netflix", "2025-03-01", "-12.99"),
		rawTx("Netflix", "2025-04-01", "-12.99"),
	}
}

func defaultConfig() Config {
	return Config{ConfidenceThreshold: 50, MinSampleSize: 2}
}

func TestRun_DetectsAndPersistsSubscription(t *testing.T) {
	store := &stubStore{}
	source := &stubSource{txns: monthlyNetflix()}
	o := NewOrchestrator(store, defaultConfig(), source)

	record, err := o.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if record.Status != models.ScanCompleted {
		t.Fatalf("Status got=%s want=completed", record.Status)
	}
	if record.SubscriptionsFound != 1 {
		t.Fatalf("SubscriptionsFound got=%d want=1", record.SubscriptionsFound)
	}
	if len(store.subs) != 1 {
		t.Fatalf("persisted subscriptions got=%d want=1", len(store.subs))
	}
	sub := store.subs[0]
	if sub.MerchantName != "Netflix" || sub.BillingCycle != models.CycleMonthly {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
	if !store.completed || store.foundCount != 1 {
		t.Fatalf("scan record not completed correctly: %+v", store)
	}
	// Monthly subscription contributes its amount as-is.
	if d := store.totalCost - 12.99; d > 1e-9 || d < -1e-9 {
		t.Fatalf("totalCost got=%v want=12.99", store.totalCost)
	}
}

func TestRun_FetchFailureLeavesStoreUntouched(t *testing.T) {
	prior := []models.Subscription{{
		ID:           1,
		UserID:       1,
		MerchantName: "Netflix",
		Amount:       12.99,
		BillingCycle: models.CycleMonthly,
		Confidence:   89,
		Provider:     "plaid",
	}}
	store := &stubStore{subs: append([]models.Subscription(nil), prior...), nextSubID: 1}
	source := &stubSource{err: errors.New("provider unreachable")}
	o := NewOrchestrator(store, defaultConfig(), source)

	record, err := o.Run(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected fetch error")
	}
	if record.Status != models.ScanFailed {
		t.Fatalf("Status got=%s want=failed", record.Status)
	}
	if record.ErrorMessage == nil || *record.ErrorMessage == "" {
		t.Fatalf("failed scan must carry a reason")
	}
	if store.applyCalls != 0 {
		t.Fatalf("failed fetch must not write: applyCalls=%d", store.applyCalls)
	}
	if !reflect.DeepEqual(store.subs, prior) {
		t.Fatalf("prior subscriptions changed:\n got %+v\nwant %+v", store.subs, prior)
	}
	if store.failReason == "" {
		t.Fatalf("FailScan was not called")
	}
}

func TestRun_RejectsWhenScanPending(t *testing.T) {
	store := &stubStore{pending: true}
	o := NewOrchestrator(store, defaultConfig(), &stubSource{})

	_, err := o.Run(context.Background(), 1)
	if !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("err got=%v want=ErrScanInProgress", err)
	}
	if store.created != 0 {
		t.Fatalf("no scan record must be created when one is pending")
	}
}

func TestRun_SerializesScansPerUser(t *testing.T) {
	store := &stubStore{}
	release := make(chan struct{})
	source := &stubSource{txns: monthlyNetflix(), release: release}
	o := NewOrchestrator(store, defaultConfig(), source)

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), 1)
		done <- err
	}()

	// Wait for the first scan to be holding the per-user slot.
	deadline := time.After(2 * time.Second)
	for {
		o.mu.Lock()
		_, busy := o.inFlight[1]
		o.mu.Unlock()
		if busy {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first scan never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := o.Run(context.Background(), 1); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("second scan for same user got=%v want=ErrScanInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
}

func TestRun_RetriesPlanOnceOnConflict(t *testing.T) {
	store := &stubStore{applyErrs: []error{ErrConflict}}
	o := NewOrchestrator(store, defaultConfig(), &stubSource{txns: monthlyNetflix()})

	record, err := o.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.Status != models.ScanCompleted {
		t.Fatalf("Status got=%s want=completed", record.Status)
	}
	if store.applyCalls != 2 {
		t.Fatalf("applyCalls got=%d want=2", store.applyCalls)
	}
}

func TestRun_PersistentConflictFailsScan(t *testing.T) {
	store := &stubStore{applyErrs: []error{ErrConflict, ErrConflict}}
	o := NewOrchestrator(store, defaultConfig(), &stubSource{txns: monthlyNetflix()})

	record, err := o.Run(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected scan failure after second conflict")
	}
	if record.Status != models.ScanFailed {
		t.Fatalf("Status got=%s want=failed", record.Status)
	}
	if store.applyCalls != 2 {
		t.Fatalf("applyCalls got=%d want=2 (exactly one retry)", store.applyCalls)
	}
}

func TestRun_MalformedTransactionsAreExcludedNotFatal(t *testing.T) {
	txns := append(monthlyNetflix(),
		models.RawTransaction{Provider: "plaid", Amount: "not a number", BookingDate: "2025-02-02"},
		models.RawTransaction{Provider: "plaid", Amount: "-3.00", BookingDate: "whenever"},
	)
	store := &stubStore{}
	o := NewOrchestrator(store, defaultConfig(), &stubSource{txns: txns})

	record, err := o.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.Status != models.ScanCompleted {
		t.Fatalf("Status got=%s want=completed", record.Status)
	}
	if len(store.subs) != 1 {
		t.Fatalf("subscriptions got=%d want=1", len(store.subs))
	}
}

func TestRun_ScansForDistinctUsersMayOverlap(t *testing.T) {
	store := &stubStore{}
	release := make(chan struct{})
	blocking := &stubSource{txns: monthlyNetflix(), release: release}
	o := NewOrchestrator(store, defaultConfig(), blocking)

	first := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), 1)
		first <- err
	}()

	second := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), 2)
		second <- err
	}()

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("user 1 scan: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("user 2 scan: %v", err)
	}
}
