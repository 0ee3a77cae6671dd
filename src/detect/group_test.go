package detect

import (
	"testing"
	"time"

	"subscan-server/src/models"
)

func normTx(merchant, provider, date string, amount float64) models.NormalizedTransaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	return models.NormalizedTransaction{
		MerchantKey:    MerchantKey(merchant),
		DisplayName:    merchant,
		Provider:       provider,
		Amount:         amount,
		AbsoluteAmount: abs,
		Currency:       "USD",
		BookingDate:    d,
		Outgoing:       amount < 0,
	}
}

func TestGroupByMerchant_FiltersAndSorts(t *testing.T) {
	invalid := normTx("Netflix", "plaid", "2025-01-01", -12.99)
	invalid.Invalid = true

	txns := []models.NormalizedTransaction{
		normTx("Netflix", "plaid", "2025-03-01", -12.99),
		normTx("Netflix", "plaid", "2025-01-01", -12.99),
		normTx("Netflix", "plaid", "2025-02-01", -12.99),
		normTx("Refund Corp", "plaid", "2025-02-15", 30.00), // incoming, excluded
		invalid, // excluded
	}

	groups := GroupByMerchant(txns)

	if len(groups) != 1 {
		t.Fatalf("groups len got=%d want=1", len(groups))
	}
	g, ok := groups["netflix|plaid"]
	if !ok {
		t.Fatalf("missing netflix|plaid group, have %v", groups)
	}
	if len(g.Transactions) != 3 {
		t.Fatalf("transactions len got=%d want=3", len(g.Transactions))
	}
	for i := 1; i < len(g.Transactions); i++ {
		if g.Transactions[i].BookingDate.Before(g.Transactions[i-1].BookingDate) {
			t.Fatalf("transactions not sorted ascending by booking date")
		}
	}
}

func TestGroupByMerchant_DropsSingletons(t *testing.T) {
	txns := []models.NormalizedTransaction{
		normTx("OneTimePurchase", "plaid", "2025-01-10", -99.00),
		normTx("Spotify", "plaid", "2025-01-01", -9.99),
		normTx("Spotify", "plaid", "2025-02-01", -9.99),
	}

	groups := GroupByMerchant(txns)

	if _, ok := groups["onetimepurchase|plaid"]; ok {
		t.Fatalf("single payment must not form a group")
	}
	if _, ok := groups["spotify|plaid"]; !ok {
		t.Fatalf("expected spotify group")
	}
}

func TestGroupByMerchant_SeparatesProviders(t *testing.T) {
	txns := []models.NormalizedTransaction{
		normTx("Spotify", "plaid", "2025-01-01", -9.99),
		normTx("Spotify", "plaid", "2025-02-01", -9.99),
		normTx("Spotify", "nordigen", "2025-01-03", -9.99),
		normTx("Spotify", "nordigen", "2025-02-03", -9.99),
	}

	groups := GroupByMerchant(txns)

	if len(groups) != 2 {
		t.Fatalf("groups len got=%d want=2 (one per provider)", len(groups))
	}
}
