package api

import (
	"net/http"

	"subscan-server/src/handlers"
	"subscan-server/src/middleware"
	"subscan-server/src/scan"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plaid/plaid-go/v41/plaid"
)

func NewRouter(pool *pgxpool.Pool, plaidClient *plaid.APIClient, orchestrator *scan.Orchestrator) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", handlers.Login(pool))
		r.Post("/register", handlers.Register(pool))
		r.Post("/plaid/webhook", handlers.PlaidWebhook(plaidClient, pool, orchestrator))

		// Protected routes
		r.With(middleware.JWTAuthMiddleware).Group(func(r chi.Router) {
			// Connections
			r.Post("/plaid/create-link-token", handlers.CreateLinkToken(plaidClient, pool))
			r.Post("/plaid/exchange-public-token", handlers.ExchangePublicToken(plaidClient, pool))
			r.Get("/connections", handlers.GetConnections(pool))
			r.Delete("/connections/{connection_id}", handlers.DeleteConnection(pool))

			// Scans
			r.Post("/scans", handlers.TriggerScan(orchestrator))
			r.Get("/scans", handlers.GetScans(pool))
			r.Get("/scans/{scan_id}", handlers.GetScan(pool))

			// Subscriptions
			r.Get("/subscriptions", handlers.GetSubscriptions(pool))
			r.Get("/subscriptions/summary", handlers.GetMonthlySummary(pool))
		})
	})

	return r
}
