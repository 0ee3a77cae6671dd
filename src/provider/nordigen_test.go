package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMapNordigenTransaction(t *testing.T) {
	var txn NordigenTransaction
	txn.TransactionID = "ng-1"
	txn.BookingDate = "2025-03-01"
	txn.TransactionAmount.Amount = "-9.99"
	txn.TransactionAmount.Currency = "EUR"
	txn.CreditorName = "Spotify AB"

	raw := MapNordigenTransaction("acc-1", txn)

	if raw.Provider != "nordigen" {
		t.Fatalf("Provider got=%q", raw.Provider)
	}
	if raw.Amount != "-9.99" {
		t.Fatalf("Amount got=%q want=-9.99 (nordigen signs pass through)", raw.Amount)
	}
	if raw.MerchantName == nil || *raw.MerchantName != "Spotify AB" {
		t.Fatalf("MerchantName got=%v", raw.MerchantName)
	}
	if raw.ExternalID != "ng-1" || raw.AccountID != "acc-1" {
		t.Fatalf("identifiers got=%q/%q", raw.ExternalID, raw.AccountID)
	}
}

func TestMapNordigenTransaction_FallsBackToRemittanceInfo(t *testing.T) {
	var txn NordigenTransaction
	txn.TransactionAmount.Amount = "-5.00"
	txn.RemittanceInformationUnstructured = "NETFLIX.COM"

	raw := MapNordigenTransaction("acc-1", txn)
	if raw.MerchantName == nil || *raw.MerchantName != "NETFLIX.COM" {
		t.Fatalf("MerchantName got=%v want NETFLIX.COM", raw.MerchantName)
	}
}

func TestMapNordigenTransaction_MissingMerchantStaysNil(t *testing.T) {
	var txn NordigenTransaction
	txn.TransactionAmount.Amount = "-5.00"

	raw := MapNordigenTransaction("acc-1", txn)
	if raw.MerchantName != nil {
		t.Fatalf("MerchantName got=%v want nil", raw.MerchantName)
	}
}

func TestNordigenClient_AccountTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/accounts/acc-1/transactions/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization got=%q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"transactions": {
				"booked": [
					{
						"transactionId": "ng-1",
						"bookingDate": "2025-03-01",
						"transactionAmount": {"amount": "-9.99", "currency": "EUR"},
						"creditorName": "Spotify AB"
					}
				],
				"pending": []
			}
		}`))
	}))
	defer server.Close()

	client := NewNordigenClient(server.URL, "test-token")
	booked, err := client.AccountTransactions(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("AccountTransactions: %v", err)
	}
	if len(booked) != 1 {
		t.Fatalf("booked len got=%d want=1", len(booked))
	}
	if booked[0].CreditorName != "Spotify AB" {
		t.Fatalf("CreditorName got=%q", booked[0].CreditorName)
	}
}

func TestNordigenClient_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewNordigenClient(server.URL, "test-token")
	if _, err := client.AccountTransactions(context.Background(), "acc-1"); err == nil {
		t.Fatalf("expected error on HTTP 429")
	}
}
