package provider

import (
	"testing"

	"github.com/plaid/plaid-go/v41/plaid"
)

func TestMapPlaidTransaction_FlipsSign(t *testing.T) {
	var txn plaid.Transaction
	txn.SetAccountId("acc-1")
	txn.SetTransactionId("tx-1")
	txn.SetAmount(12.99) // plaid: positive = outgoing
	txn.SetIsoCurrencyCode("USD")
	txn.SetDate("2025-03-01")
	txn.SetName("NETFLIX.COM")
	txn.SetMerchantName("Netflix")

	raw := MapPlaidTransaction(txn)

	if raw.Amount != "-12.99" {
		t.Fatalf("Amount got=%q want=-12.99 (outgoing must be negative)", raw.Amount)
	}
	if raw.MerchantName == nil || *raw.MerchantName != "Netflix" {
		t.Fatalf("MerchantName got=%v want Netflix", raw.MerchantName)
	}
	if raw.Provider != "plaid" || raw.BookingDate != "2025-03-01" {
		t.Fatalf("unexpected mapping: %+v", raw)
	}
}

func TestMapPlaidTransaction_FallsBackToTransactionName(t *testing.T) {
	var txn plaid.Transaction
	txn.SetAmount(5.00)
	txn.SetDate("2025-03-01")
	txn.SetName("SQ *COFFEE SHOP")

	raw := MapPlaidTransaction(txn)
	if raw.MerchantName == nil || *raw.MerchantName != "SQ *COFFEE SHOP" {
		t.Fatalf("MerchantName got=%v want fallback to name", raw.MerchantName)
	}
	if raw.Amount != "-5.00" {
		t.Fatalf("Amount got=%q want=-5.00", raw.Amount)
	}
}
