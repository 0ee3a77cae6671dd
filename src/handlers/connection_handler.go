package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plaid/plaid-go/v41/plaid"

	db "subscan-server/src/db/sql"
	"subscan-server/src/models"
)

func CreateLinkToken(plaidClient *plaid.APIClient, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("user_id").(int64)

		user := plaid.LinkTokenCreateRequestUser{
			ClientUserId: strconv.FormatInt(userID, 10),
		}
		request := plaid.NewLinkTokenCreateRequest(
			"Subscan",
			"en",
			[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		)
		request.SetUser(user)
		request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

		resp, _, err := plaidClient.PlaidApi.LinkTokenCreate(context.Background()).LinkTokenCreateRequest(*request).Execute()
		if err != nil {
			http.Error(w, "Failed to create link token", http.StatusInternalServerError)
			log.Printf("ERROR: Plaid link token creation failed for user %d: %v", userID, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(resp.GetLinkToken())
	}
}

func ExchangePublicToken(plaidClient *plaid.APIClient, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("user_id").(int64)

		var req struct {
			PublicToken string `json:"public_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode exchange public token request body: %v", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		exchangeReq := plaid.NewItemPublicTokenExchangeRequest(req.PublicToken)
		exchangeResp, _, err := plaidClient.PlaidApi.ItemPublicTokenExchange(context.Background()).ItemPublicTokenExchangeRequest(
			*exchangeReq,
		).Execute()
		if err != nil {
			http.Error(w, "Failed to exchange public token", http.StatusInternalServerError)
			log.Printf("ERROR: Plaid public token exchange failed for user %d: %v", userID, err)
			return
		}

		accessToken := exchangeResp.GetAccessToken()
		itemID := exchangeResp.GetItemId()

		// Institution details are optional; don't fail the flow on them.
		institutionName := ""
		itemReq := plaid.NewItemGetRequest(accessToken)
		itemResp, _, err := plaidClient.PlaidApi.ItemGet(context.Background()).ItemGetRequest(*itemReq).Execute()
		if err != nil {
			log.Printf("ERROR: Failed to fetch item details for user %d: %v", userID, err)
		} else if name, ok := itemResp.GetItem().AdditionalProperties["institution_name"].(string); ok {
			institutionName = name
		}

		if err := db.SaveConnection(r.Context(), pool, userID, "plaid", itemID, accessToken, institutionName); err != nil {
			http.Error(w, "Failed to save connection", http.StatusInternalServerError)
			log.Printf("ERROR: Failed to save plaid connection for user %d: %v", userID, err)
			return
		}

		log.Printf("INFO: Linked plaid connection for user %d, item %s", userID, itemID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"item_id": itemID,
		})
	}
}

func GetConnections(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("user_id").(int64)

		conns, err := db.GetConnections(r.Context(), pool, userID, "")
		if err != nil {
			http.Error(w, "Failed to retrieve connections", http.StatusInternalServerError)
			log.Printf("ERROR: Failed to get connections for user %d: %v", userID, err)
			return
		}
		if conns == nil {
			conns = []models.Connection{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conns)
	}
}

func DeleteConnection(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("user_id").(int64)

		connectionID, err := strconv.ParseInt(chi.URLParam(r, "connection_id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid connection id", http.StatusBadRequest)
			return
		}

		if err := db.DeleteConnection(r.Context(), pool, userID, connectionID); err != nil {
			http.Error(w, "Failed to delete connection", http.StatusNotFound)
			log.Printf("ERROR: Failed to delete connection %d for user %d: %v", connectionID, userID, err)
			return
		}

		log.Printf("INFO: Deleted connection %d for user %d", connectionID, userID)
		w.WriteHeader(http.StatusNoContent)
	}
}
