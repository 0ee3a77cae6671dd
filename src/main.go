package main

import (
	"log"
	"net/http"

	"subscan-server/src/api"
	"subscan-server/src/config"
	"subscan-server/src/db"
	dbsql "subscan-server/src/db/sql"
	plaidclient "subscan-server/src/plaid"
	"subscan-server/src/provider"
	"subscan-server/src/scan"
)

func main() {
	cfg := config.Load()

	// Connect to database
	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("DB connection failed: %v", err)
	}
	defer pool.Close()

	db.InitCache()

	plaidAPI := plaidclient.NewPlaidClient(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnv)

	sources := []scan.TransactionSource{
		&provider.PlaidSource{Client: plaidAPI, Pool: pool},
	}
	if cfg.NordigenToken != "" {
		sources = append(sources, &provider.NordigenSource{
			Client: provider.NewNordigenClient(cfg.NordigenBaseURL, cfg.NordigenToken),
			Pool:   pool,
		})
	}

	orchestrator := scan.NewOrchestrator(
		dbsql.NewScanStore(pool),
		scan.Config{
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			MinSampleSize:       cfg.MinSampleSize,
		},
		sources...,
	)

	router := api.NewRouter(pool, plaidAPI, orchestrator)

	log.Println("API server running on port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
