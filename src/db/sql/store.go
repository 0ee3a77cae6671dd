package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"subscan-server/src/db"
	"subscan-server/src/detect"
	"subscan-server/src/models"
	"subscan-server/src/scan"
)

// ScanStore is the pgx-backed persistence boundary the scan orchestrator
// works against.
type ScanStore struct {
	Pool *pgxpool.Pool
}

func NewScanStore(pool *pgxpool.Pool) *ScanStore {
	return &ScanStore{Pool: pool}
}

func (s *ScanStore) HasPendingScan(ctx context.Context, userID int64) (bool, error) {
	return HasPendingScan(ctx, s.Pool, userID)
}

func (s *ScanStore) CreateScan(ctx context.Context, userID int64, provider string) (models.ScanRecord, error) {
	record, err := InsertScan(ctx, s.Pool, userID, provider)
	if err != nil {
		return models.ScanRecord{}, err
	}
	db.ClearAllScanCaches()
	return record, nil
}

func (s *ScanStore) CompleteScan(ctx context.Context, scanID int64, found int, totalMonthly float64) error {
	if err := MarkScanCompleted(ctx, s.Pool, scanID, found, totalMonthly); err != nil {
		return err
	}
	db.ClearAllScanCaches()
	return nil
}

func (s *ScanStore) FailScan(ctx context.Context, scanID int64, reason string) error {
	if err := MarkScanFailed(ctx, s.Pool, scanID, reason); err != nil {
		return err
	}
	db.ClearAllScanCaches()
	return nil
}

func (s *ScanStore) ListSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error) {
	return ListSubscriptions(ctx, s.Pool, userID)
}

// ApplyPlan writes a reconciliation plan in a single transaction, so a crash
// mid-batch leaves either the old or the new subscription set. A unique-key
// violation from a concurrent writer surfaces as scan.ErrConflict.
func (s *ScanStore) ApplyPlan(ctx context.Context, plan detect.Plan) ([]models.Subscription, error) {
	if plan.Size() == 0 {
		return nil, nil
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	applied := make([]models.Subscription, 0, plan.Size())
	for _, sub := range plan.ToInsert {
		inserted, err := insertSubscription(ctx, tx, sub)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("insert %q/%s: %w", sub.MerchantName, sub.Provider, scan.ErrConflict)
			}
			return nil, fmt.Errorf("insert %q/%s: %w", sub.MerchantName, sub.Provider, err)
		}
		applied = append(applied, inserted)
	}
	for _, sub := range plan.ToUpdate {
		updated, err := updateSubscription(ctx, tx, sub)
		if err != nil {
			return nil, fmt.Errorf("update subscription %d: %w", sub.ID, err)
		}
		applied = append(applied, updated)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit plan: %w", err)
	}

	db.ClearAllSubscriptionCaches()
	return applied, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
