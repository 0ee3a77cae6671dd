package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"subscan-server/src/models"
)

// SaveRawTransactions stores fetched transactions append-only so scans can
// always see the full history, not just the latest sync window. Re-synced
// transactions are ignored on the external id.
func SaveRawTransactions(ctx context.Context, pool *pgxpool.Pool, connectionID int64, txns []models.RawTransaction) error {
	for _, txn := range txns {
		query := `
			INSERT INTO transactions (connection_id, account_id, provider, merchant_name, amount, currency, booking_date, external_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			ON CONFLICT (external_id) DO NOTHING
		`
		_, err := pool.Exec(ctx, query,
			connectionID,
			txn.AccountID,
			txn.Provider,
			txn.MerchantName,
			txn.Amount,
			txn.Currency,
			txn.BookingDate,
			txn.ExternalID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func GetRawTransactions(ctx context.Context, pool *pgxpool.Pool, userID int64, provider string) ([]models.RawTransaction, error) {
	query := `
		SELECT t.account_id, t.provider, t.merchant_name, t.amount, t.currency, t.booking_date, t.external_id
		FROM transactions t
		JOIN connections c ON t.connection_id = c.id
		WHERE c.user_id = $1 AND ($2 = '' OR t.provider = $2)
		ORDER BY t.booking_date
	`

	rows, err := pool.Query(ctx, query, userID, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.RawTransaction
	for rows.Next() {
		var txn models.RawTransaction
		err := rows.Scan(&txn.AccountID, &txn.Provider, &txn.MerchantName, &txn.Amount, &txn.Currency, &txn.BookingDate, &txn.ExternalID)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}
