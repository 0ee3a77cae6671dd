package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"subscan-server/src/detect"
	"subscan-server/src/models"
)

// ErrScanInProgress is returned when a scan is triggered for a user who
// already has one pending. Two scans for the same user must never race their
// reconciliation plans.
var ErrScanInProgress = errors.New("scan already in progress for user")

// ErrConflict is surfaced by the store when a concurrent write violated the
// (user_id, merchant_name, provider) uniqueness key. Retryable once.
var ErrConflict = errors.New("subscription uniqueness conflict")

// TransactionSource supplies raw transactions for all of a user's connections
// with one provider. Timeouts and retries are the source's problem; a fetch
// failure is terminal for the scan.
type TransactionSource interface {
	Name() string
	Transactions(ctx context.Context, userID int64) ([]models.RawTransaction, error)
}

// Store is the persistence boundary of a scan. ApplyPlan must be atomic: a
// crash mid-batch leaves either the old or the new subscription set.
type Store interface {
	HasPendingScan(ctx context.Context, userID int64) (bool, error)
	CreateScan(ctx context.Context, userID int64, provider string) (models.ScanRecord, error)
	CompleteScan(ctx context.Context, scanID int64, found int, totalMonthly float64) error
	FailScan(ctx context.Context, scanID int64, reason string) error
	ListSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error)
	ApplyPlan(ctx context.Context, plan detect.Plan) ([]models.Subscription, error)
}

type Config struct {
	ConfidenceThreshold int
	MinSampleSize       int
}

// Orchestrator drives one detection scan per user: fetch, normalize, group,
// infer, reconcile, persist. Scans for distinct users run in parallel; scans
// for the same user are serialized.
type Orchestrator struct {
	sources []TransactionSource
	store   Store
	cfg     Config

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewOrchestrator(store Store, cfg Config, sources ...TransactionSource) *Orchestrator {
	return &Orchestrator{
		sources:  sources,
		store:    store,
		cfg:      cfg,
		inFlight: make(map[int64]struct{}),
	}
}

// Run executes a full scan for one user. The returned ScanRecord reflects the
// terminal state (completed or failed); the error carries the cause when the
// scan could not run or did not complete.
func (o *Orchestrator) Run(ctx context.Context, userID int64) (models.ScanRecord, error) {
	if !o.acquire(userID) {
		return models.ScanRecord{}, ErrScanInProgress
	}
	defer o.release(userID)

	pending, err := o.store.HasPendingScan(ctx, userID)
	if err != nil {
		return models.ScanRecord{}, fmt.Errorf("check pending scan: %w", err)
	}
	if pending {
		return models.ScanRecord{}, ErrScanInProgress
	}

	record, err := o.store.CreateScan(ctx, userID, o.providerLabel())
	if err != nil {
		return models.ScanRecord{}, fmt.Errorf("create scan record: %w", err)
	}

	raws, err := o.fetchAll(ctx, userID)
	if err != nil {
		return o.fail(ctx, record, fmt.Sprintf("provider fetch failed: %v", err)), err
	}

	normalized := make([]models.NormalizedTransaction, 0, len(raws))
	malformed := 0
	for _, raw := range raws {
		n := detect.Normalize(raw)
		if n.Invalid {
			malformed++
		}
		normalized = append(normalized, n)
	}
	if malformed > 0 {
		log.Printf("INFO: scan %d for user %d excluded %d malformed transactions", record.ID, userID, malformed)
	}

	groups := detect.GroupByMerchant(normalized)

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	candidates := make([]models.SubscriptionCandidate, 0, len(groups))
	for _, key := range keys {
		if c, ok := detect.InferCadence(groups[key], o.cfg.MinSampleSize); ok {
			candidates = append(candidates, c)
		}
	}

	existing, err := o.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return o.fail(ctx, record, fmt.Sprintf("load existing subscriptions: %v", err)), err
	}

	plan := detect.BuildPlan(userID, candidates, existing, o.cfg.ConfidenceThreshold)

	applied, err := o.store.ApplyPlan(ctx, plan)
	if errors.Is(err, ErrConflict) {
		log.Printf("INFO: scan %d for user %d hit a uniqueness conflict, retrying once", record.ID, userID)
		applied, err = o.store.ApplyPlan(ctx, plan)
	}
	if err != nil {
		return o.fail(ctx, record, fmt.Sprintf("persist reconciliation plan: %v", err)), err
	}

	total := 0.0
	for _, sub := range applied {
		total += models.MonthlyEquivalent(sub.Amount, sub.BillingCycle)
	}

	if err := o.store.CompleteScan(ctx, record.ID, plan.Size(), total); err != nil {
		return models.ScanRecord{}, fmt.Errorf("complete scan record: %w", err)
	}

	log.Printf("INFO: scan %d for user %d completed: %d transactions, %d groups, %d inserts, %d updates",
		record.ID, userID, len(raws), len(groups), len(plan.ToInsert), len(plan.ToUpdate))

	record.Status = models.ScanCompleted
	record.SubscriptionsFound = plan.Size()
	record.TotalMonthlyCost = total
	return record, nil
}

// fetchAll pulls transactions from every configured source. Any source
// failing fails the whole fetch: a partial picture would produce a partial
// reconciliation plan that could overwrite good data.
func (o *Orchestrator) fetchAll(ctx context.Context, userID int64) ([]models.RawTransaction, error) {
	var all []models.RawTransaction
	for _, src := range o.sources {
		txns, err := src.Transactions(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
		all = append(all, txns...)
	}
	return all, nil
}

func (o *Orchestrator) fail(ctx context.Context, record models.ScanRecord, reason string) models.ScanRecord {
	log.Printf("ERROR: scan %d for user %d failed: %s", record.ID, record.UserID, reason)
	if err := o.store.FailScan(ctx, record.ID, reason); err != nil {
		log.Printf("ERROR: failed to mark scan %d as failed: %v", record.ID, err)
	}
	record.Status = models.ScanFailed
	record.ErrorMessage = &reason
	return record
}

func (o *Orchestrator) providerLabel() string {
	names := make([]string, len(o.sources))
	for i, src := range o.sources {
		names[i] = src.Name()
	}
	return strings.Join(names, ",")
}

func (o *Orchestrator) acquire(userID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[userID]; busy {
		return false
	}
	o.inFlight[userID] = struct{}{}
	return true
}

func (o *Orchestrator) release(userID int64) {
	o.mu.Lock()
	delete(o.inFlight, userID)
	o.mu.Unlock()
}
