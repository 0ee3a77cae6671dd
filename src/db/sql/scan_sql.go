package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"subscan-server/src/db"
	"subscan-server/src/models"
)

func InsertScan(ctx context.Context, pool *pgxpool.Pool, userID int64, provider string) (models.ScanRecord, error) {
	query := `
		INSERT INTO scans (user_id, provider, status, started_at)
		VALUES ($1, $2, 'pending', NOW())
		RETURNING id, user_id, provider, status, subscriptions_found, total_monthly_cost, started_at
	`
	var s models.ScanRecord
	err := pool.QueryRow(ctx, query, userID, provider).
		Scan(&s.ID, &s.UserID, &s.Provider, &s.Status, &s.SubscriptionsFound, &s.TotalMonthlyCost, &s.StartedAt)
	if err != nil {
		return models.ScanRecord{}, err
	}
	return s, nil
}

func MarkScanCompleted(ctx context.Context, pool *pgxpool.Pool, scanID int64, found int, totalMonthly float64) error {
	query := `
		UPDATE scans
		SET status = 'completed', subscriptions_found = $1, total_monthly_cost = $2, completed_at = NOW()
		WHERE id = $3
	`
	_, err := pool.Exec(ctx, query, found, totalMonthly, scanID)
	return err
}

func MarkScanFailed(ctx context.Context, pool *pgxpool.Pool, scanID int64, reason string) error {
	query := `
		UPDATE scans
		SET status = 'failed', error_message = $1, completed_at = NOW()
		WHERE id = $2
	`
	_, err := pool.Exec(ctx, query, reason, scanID)
	return err
}

func HasPendingScan(ctx context.Context, pool *pgxpool.Pool, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM scans WHERE user_id = $1 AND status = 'pending')`
	var pending bool
	err := pool.QueryRow(ctx, query, userID).Scan(&pending)
	return pending, err
}

func GetScans(ctx context.Context, pool *pgxpool.Pool, userID int64) ([]models.ScanRecord, error) {
	cacheKey := fmt.Sprintf("scans:%d", userID)
	if cached, found := db.GetCache(cacheKey); found {
		if scans, ok := cached.([]models.ScanRecord); ok {
			return scans, nil
		}
	}

	query := `
		SELECT id, user_id, provider, status, subscriptions_found, total_monthly_cost, error_message, started_at, completed_at
		FROM scans
		WHERE user_id = $1
		ORDER BY started_at DESC
	`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []models.ScanRecord
	for rows.Next() {
		var s models.ScanRecord
		err := rows.Scan(&s.ID, &s.UserID, &s.Provider, &s.Status, &s.SubscriptionsFound, &s.TotalMonthlyCost, &s.ErrorMessage, &s.StartedAt, &s.CompletedAt)
		if err != nil {
			return nil, err
		}
		scans = append(scans, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	db.SetScanCache(cacheKey, scans)
	return scans, nil
}

func GetScan(ctx context.Context, pool *pgxpool.Pool, userID, scanID int64) (*models.ScanRecord, error) {
	query := `
		SELECT id, user_id, provider, status, subscriptions_found, total_monthly_cost, error_message, started_at, completed_at
		FROM scans
		WHERE id = $1 AND user_id = $2
	`
	var s models.ScanRecord
	err := pool.QueryRow(ctx, query, scanID, userID).
		Scan(&s.ID, &s.UserID, &s.Provider, &s.Status, &s.SubscriptionsFound, &s.TotalMonthlyCost, &s.ErrorMessage, &s.StartedAt, &s.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
