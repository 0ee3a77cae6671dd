package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"subscan-server/src/models"
)

func SaveConnection(ctx context.Context, pool *pgxpool.Pool, userID int64, provider, providerItemID, accessToken, institutionName string) error {
	query := `
		INSERT INTO connections (user_id, provider, provider_item_id, access_token, institution_name, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		ON CONFLICT (provider_item_id) DO NOTHING
	`
	_, err := pool.Exec(ctx, query, userID, provider, providerItemID, accessToken, institutionName)
	return err
}

// GetConnections returns a user's active connections. Pass provider "" for all.
func GetConnections(ctx context.Context, pool *pgxpool.Pool, userID int64, provider string) ([]models.Connection, error) {
	query := `
		SELECT id, user_id, provider, provider_item_id, access_token, institution_name, status, created_at
		FROM connections
		WHERE user_id = $1 AND status = 'active' AND ($2 = '' OR provider = $2)
		ORDER BY id
	`

	rows, err := pool.Query(ctx, query, userID, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []models.Connection
	for rows.Next() {
		var c models.Connection
		err := rows.Scan(&c.ID, &c.UserID, &c.Provider, &c.ProviderItemID, &c.AccessToken, &c.InstitutionName, &c.Status, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}

	return conns, rows.Err()
}

func GetConnectionByItemID(ctx context.Context, pool *pgxpool.Pool, providerItemID string) (*models.Connection, error) {
	query := `
		SELECT id, user_id, provider, provider_item_id, access_token, institution_name, status, created_at
		FROM connections
		WHERE provider_item_id = $1 AND status = 'active'
	`
	var c models.Connection
	err := pool.QueryRow(ctx, query, providerItemID).
		Scan(&c.ID, &c.UserID, &c.Provider, &c.ProviderItemID, &c.AccessToken, &c.InstitutionName, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func DeleteConnection(ctx context.Context, pool *pgxpool.Pool, userID, connectionID int64) error {
	query := `DELETE FROM connections WHERE id = $1 AND user_id = $2`
	cmd, err := pool.Exec(ctx, query, connectionID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("connection not found")
	}
	return nil
}

func GetSyncCursor(ctx context.Context, pool *pgxpool.Pool, connectionID int64) (string, error) {
	query := `SELECT COALESCE(sync_cursor, '') FROM connections WHERE id = $1`
	var cursor string
	err := pool.QueryRow(ctx, query, connectionID).Scan(&cursor)
	if err != nil {
		return "", err
	}
	return cursor, nil
}

func UpdateSyncCursor(ctx context.Context, pool *pgxpool.Pool, connectionID int64, cursor string) error {
	query := `UPDATE connections SET sync_cursor = $1 WHERE id = $2`
	_, err := pool.Exec(ctx, query, cursor, connectionID)
	return err
}

func SaveAccounts(ctx context.Context, pool *pgxpool.Pool, connectionID int64, accounts []models.Account) error {
	for _, acc := range accounts {
		query := `
			INSERT INTO accounts (connection_id, account_id, name, mask, type, currency)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (account_id) DO UPDATE SET
				name = $3,
				mask = $4
		`
		_, err := pool.Exec(ctx, query, connectionID, acc.AccountID, acc.Name, acc.Mask, acc.Type, acc.Currency)
		if err != nil {
			return err
		}
	}
	return nil
}

func GetAccounts(ctx context.Context, pool *pgxpool.Pool, connectionID int64) ([]models.Account, error) {
	query := `
		SELECT id, connection_id, account_id, name, mask, type, currency, created_at
		FROM accounts
		WHERE connection_id = $1
	`

	rows, err := pool.Query(ctx, query, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		err := rows.Scan(&a.ID, &a.ConnectionID, &a.AccountID, &a.Name, &a.Mask, &a.Type, &a.Currency, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
