package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"subscan-server/src/db"
	"subscan-server/src/models"
)

func ListSubscriptions(ctx context.Context, pool *pgxpool.Pool, userID int64) ([]models.Subscription, error) {
	cacheKey := fmt.Sprintf("subscriptions:%d", userID)
	if cached, found := db.GetCache(cacheKey); found {
		if subs, ok := cached.([]models.Subscription); ok {
			return subs, nil
		}
	}

	query := `
		SELECT id, user_id, merchant_name, amount, currency, billing_cycle, last_charge_date, confidence, provider, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY merchant_name, provider
	`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		err := rows.Scan(&s.ID, &s.UserID, &s.MerchantName, &s.Amount, &s.Currency, &s.BillingCycle, &s.LastChargeDate, &s.Confidence, &s.Provider, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	db.SetSubscriptionCache(cacheKey, subs)
	return subs, nil
}

func insertSubscription(ctx context.Context, tx pgx.Tx, sub models.Subscription) (models.Subscription, error) {
	query := `
		INSERT INTO subscriptions (user_id, merchant_name, amount, currency, billing_cycle, last_charge_date, confidence, provider)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, user_id, merchant_name, amount, currency, billing_cycle, last_charge_date, confidence, provider, created_at, updated_at
	`
	var out models.Subscription
	err := tx.QueryRow(ctx, query,
		sub.UserID, sub.MerchantName, sub.Amount, sub.Currency, sub.BillingCycle, sub.LastChargeDate, sub.Confidence, sub.Provider,
	).Scan(&out.ID, &out.UserID, &out.MerchantName, &out.Amount, &out.Currency, &out.BillingCycle, &out.LastChargeDate, &out.Confidence, &out.Provider, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return models.Subscription{}, err
	}
	return out, nil
}

func updateSubscription(ctx context.Context, tx pgx.Tx, sub models.Subscription) (models.Subscription, error) {
	query := `
		UPDATE subscriptions
		SET amount = $1, billing_cycle = $2, confidence = $3, last_charge_date = $4, updated_at = NOW()
		WHERE id = $5 AND user_id = $6
		RETURNING id, user_id, merchant_name, amount, currency, billing_cycle, last_charge_date, confidence, provider, created_at, updated_at
	`
	var out models.Subscription
	err := tx.QueryRow(ctx, query,
		sub.Amount, sub.BillingCycle, sub.Confidence, sub.LastChargeDate, sub.ID, sub.UserID,
	).Scan(&out.ID, &out.UserID, &out.MerchantName, &out.Amount, &out.Currency, &out.BillingCycle, &out.LastChargeDate, &out.Confidence, &out.Provider, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return models.Subscription{}, err
	}
	return out, nil
}
