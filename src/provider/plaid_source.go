package provider

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plaid/plaid-go/v41/plaid"

	db "subscan-server/src/db/sql"
	"subscan-server/src/models"
)

// PlaidSource pulls transactions for all of a user's Plaid connections. New
// transactions are synced with Plaid's cursor API and persisted append-only;
// the full stored history is what the detection pipeline sees, so cadence
// inference is not limited to the latest sync window.
type PlaidSource struct {
	Client *plaid.APIClient
	Pool   *pgxpool.Pool
}

func (s *PlaidSource) Name() string { return "plaid" }

func (s *PlaidSource) Transactions(ctx context.Context, userID int64) ([]models.RawTransaction, error) {
	conns, err := db.GetConnections(ctx, s.Pool, userID, "plaid")
	if err != nil {
		return nil, fmt.Errorf("load plaid connections: %w", err)
	}

	for _, conn := range conns {
		if err := s.syncConnection(ctx, conn); err != nil {
			return nil, fmt.Errorf("sync connection %d: %w", conn.ID, err)
		}
	}

	return db.GetRawTransactions(ctx, s.Pool, userID, "plaid")
}

func (s *PlaidSource) syncConnection(ctx context.Context, conn models.Connection) error {
	cursor, err := db.GetSyncCursor(ctx, s.Pool, conn.ID)
	if err != nil {
		return fmt.Errorf("get sync cursor: %w", err)
	}

	var added []plaid.Transaction
	hasMore := true
	for hasMore {
		request := plaid.NewTransactionsSyncRequest(conn.AccessToken)
		if cursor != "" {
			request.SetCursor(cursor)
		}

		resp, _, err := s.Client.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*request).Execute()
		if err != nil {
			return fmt.Errorf("transactions sync: %w", err)
		}

		added = append(added, resp.GetAdded()...)
		cursor = resp.GetNextCursor()
		hasMore = resp.GetHasMore()
	}

	if len(added) > 0 {
		raws := make([]models.RawTransaction, 0, len(added))
		for _, txn := range added {
			raws = append(raws, MapPlaidTransaction(txn))
		}
		if err := db.SaveRawTransactions(ctx, s.Pool, conn.ID, raws); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
		log.Printf("INFO: synced %d new plaid transactions for connection %d", len(added), conn.ID)
	}

	return db.UpdateSyncCursor(ctx, s.Pool, conn.ID, cursor)
}

// MapPlaidTransaction converts a Plaid payload into the canonical shape.
// Plaid reports outgoing money as positive; the canonical convention is
// negative = outgoing, so the sign flips here.
func MapPlaidTransaction(txn plaid.Transaction) models.RawTransaction {
	name := txn.GetMerchantName()
	if name == "" {
		name = txn.GetName()
	}
	var merchant *string
	if name != "" {
		merchant = &name
	}

	return models.RawTransaction{
		AccountID:    txn.GetAccountId(),
		Provider:     "plaid",
		MerchantName: merchant,
		Amount:       strconv.FormatFloat(-txn.GetAmount(), 'f', 2, 64),
		Currency:     txn.GetIsoCurrencyCode(),
		BookingDate:  txn.GetDate(),
		ExternalID:   txn.GetTransactionId(),
	}
}
