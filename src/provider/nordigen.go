package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	db "subscan-server/src/db/sql"
	"subscan-server/src/models"
)

// NordigenClient is a thin client for the GoCardless Bank Account Data
// (Nordigen) API. No Go SDK is published for it, so requests are plain HTTP.
type NordigenClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewNordigenClient(baseURL, token string) *NordigenClient {
	return &NordigenClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NordigenTransaction mirrors the relevant slice of the Nordigen booked
// transaction payload. Amounts arrive as signed strings, negative = outgoing,
// which already matches the canonical convention.
type NordigenTransaction struct {
	TransactionID     string `json:"transactionId"`
	BookingDate       string `json:"bookingDate"`
	TransactionAmount struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"transactionAmount"`
	CreditorName                      string `json:"creditorName"`
	RemittanceInformationUnstructured string `json:"remittanceInformationUnstructured"`
}

type nordigenTransactionsResponse struct {
	Transactions struct {
		Booked []NordigenTransaction `json:"booked"`
	} `json:"transactions"`
}

// AccountTransactions fetches the booked transactions of one Nordigen account.
func (c *NordigenClient) AccountTransactions(ctx context.Context, accountID string) ([]NordigenTransaction, error) {
	url := fmt.Sprintf("%s/api/v2/accounts/%s/transactions/", c.BaseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nordigen request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nordigen returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded nordigenTransactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode nordigen response: %w", err)
	}
	return decoded.Transactions.Booked, nil
}

// NordigenSource pulls transactions for all of a user's Nordigen connections.
type NordigenSource struct {
	Client *NordigenClient
	Pool   *pgxpool.Pool
}

func (s *NordigenSource) Name() string { return "nordigen" }

func (s *NordigenSource) Transactions(ctx context.Context, userID int64) ([]models.RawTransaction, error) {
	conns, err := db.GetConnections(ctx, s.Pool, userID, "nordigen")
	if err != nil {
		return nil, fmt.Errorf("load nordigen connections: %w", err)
	}

	for _, conn := range conns {
		accounts, err := db.GetAccounts(ctx, s.Pool, conn.ID)
		if err != nil {
			return nil, fmt.Errorf("load accounts for connection %d: %w", conn.ID, err)
		}
		for _, acc := range accounts {
			booked, err := s.Client.AccountTransactions(ctx, acc.AccountID)
			if err != nil {
				return nil, fmt.Errorf("fetch account %s: %w", acc.AccountID, err)
			}
			raws := make([]models.RawTransaction, 0, len(booked))
			for _, txn := range booked {
				raws = append(raws, MapNordigenTransaction(acc.AccountID, txn))
			}
			if err := db.SaveRawTransactions(ctx, s.Pool, conn.ID, raws); err != nil {
				return nil, fmt.Errorf("save transactions: %w", err)
			}
		}
	}

	return db.GetRawTransactions(ctx, s.Pool, userID, "nordigen")
}

// MapNordigenTransaction converts a Nordigen booked transaction into the
// canonical shape. Creditor name is the best merchant identity; unstructured
// remittance text is the fallback.
func MapNordigenTransaction(accountID string, txn NordigenTransaction) models.RawTransaction {
	name := txn.CreditorName
	if name == "" {
		name = txn.RemittanceInformationUnstructured
	}
	var merchant *string
	if name != "" {
		merchant = &name
	}

	return models.RawTransaction{
		AccountID:    accountID,
		Provider:     "nordigen",
		MerchantName: merchant,
		Amount:       txn.TransactionAmount.Amount,
		Currency:     txn.TransactionAmount.Currency,
		BookingDate:  txn.BookingDate,
		ExternalID:   txn.TransactionID,
	}
}
