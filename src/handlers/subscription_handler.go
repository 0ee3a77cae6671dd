package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	db "subscan-server/src/db/sql"
	"subscan-server/src/models"
)

func GetSubscriptions(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("user_id").(int64)

		subs, err := db.ListSubscriptions(r.Context(), pool, userID)
		if err != nil {
			http.Error(w, "Failed to retrieve subscriptions", http.StatusInternalServerError)
			log.Printf("ERROR: Failed to get subscriptions for user %d: %v", userID, err)
			return
		}
		if subs == nil {
			subs = []models.Subscription{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(subs)
	}
}

// GetMonthlySummary reports the user's detected subscriptions rolled up to a
// monthly-equivalent cost.
func GetMonthlySummary(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("user_id").(int64)

		subs, err := db.ListSubscriptions(r.Context(), pool, userID)
		if err != nil {
			http.Error(w, "Failed to retrieve subscriptions", http.StatusInternalServerError)
			log.Printf("ERROR: Failed to get subscriptions for user %d: %v", userID, err)
			return
		}

		total := 0.0
		for _, sub := range subs {
			total += models.MonthlyEquivalent(sub.Amount, sub.BillingCycle)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"subscription_count": len(subs),
			"total_monthly_cost": total,
		})
	}
}
