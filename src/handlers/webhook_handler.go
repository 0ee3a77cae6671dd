package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plaid/plaid-go/v41/plaid"

	db "subscan-server/src/db/sql"
	"subscan-server/src/scan"
	"subscan-server/src/util"
)

// PlaidWebhook receives transaction webhooks from Plaid and kicks off a
// detection scan for the affected user. Plaid expects a fast 200, so the
// scan runs in the background.
func PlaidWebhook(plaidClient *plaid.APIClient, pool *pgxpool.Pool, orchestrator *scan.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		headers := map[string]string{}
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}

		valid, err := util.VerifyPlaidWebhook(r.Context(), plaidClient, body, headers)
		if err != nil || !valid {
			log.Printf("ERROR: Plaid webhook verification failed: %v", err)
			http.Error(w, "webhook verification failed", http.StatusUnauthorized)
			return
		}

		var payload struct {
			WebhookType string `json:"webhook_type"`
			WebhookCode string `json:"webhook_code"`
			ItemID      string `json:"item_id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		if payload.WebhookType != "TRANSACTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		conn, err := db.GetConnectionByItemID(r.Context(), pool, payload.ItemID)
		if err != nil {
			log.Printf("ERROR: Webhook for unknown item %s: %v", payload.ItemID, err)
			http.Error(w, "unknown item", http.StatusNotFound)
			return
		}

		log.Printf("INFO: Plaid webhook %s/%s for item %s, scanning user %d",
			payload.WebhookType, payload.WebhookCode, payload.ItemID, conn.UserID)

		go func(userID int64) {
			if _, err := orchestrator.Run(context.Background(), userID); err != nil {
				log.Printf("ERROR: Webhook-triggered scan for user %d failed: %v", userID, err)
			}
		}(conn.UserID)

		w.WriteHeader(http.StatusOK)
	}
}
