package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	db "subscan-server/src/db/sql"
	"subscan-server/src/models"
	"subscan-server/src/scan"
)

// TriggerScan runs a detection scan for the authenticated user. The scan is
// synchronous; the response is the terminal ScanRecord, including the failure
// reason when the scan did not complete.
func TriggerScan(orchestrator *scan.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("user_id").(int64)

		record, err := orchestrator.Run(r.Context(), userID)
		if errors.Is(err, scan.ErrScanInProgress) {
			http.Error(w, "a scan is already in progress", http.StatusConflict)
			return
		}
		if err != nil && record.ID == 0 {
			http.Error(w, "Failed to run scan", http.StatusInternalServerError)
			log.Printf("ERROR: Scan for user %d could not start: %v", userID, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(record)
	}
}

func GetScans(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("user_id").(int64)

		scans, err := db.GetScans(r.Context(), pool, userID)
		if err != nil {
			http.Error(w, "Failed to retrieve scans", http.StatusInternalServerError)
			log.Printf("ERROR: Failed to get scans for user %d: %v", userID, err)
			return
		}
		if scans == nil {
			scans = []models.ScanRecord{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scans)
	}
}

func GetScan(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("user_id").(int64)

		scanID, err := strconv.ParseInt(chi.URLParam(r, "scan_id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid scan id", http.StatusBadRequest)
			return
		}

		record, err := db.GetScan(r.Context(), pool, userID, scanID)
		if err != nil {
			http.Error(w, "Scan not found", http.StatusNotFound)
			log.Printf("ERROR: Failed to get scan %d for user %d: %v", scanID, userID, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(record)
	}
}
