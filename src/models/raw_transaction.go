package models

// RawTransaction is the canonical shape every provider adapter produces.
// Amount and BookingDate stay strings here because providers disagree on
// formats; the normalizer parses them exactly once.
type RawTransaction struct {
	AccountID    string  `json:"account_id"`
	Provider     string  `json:"provider"`
	MerchantName *string `json:"merchant_name"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency"`
	BookingDate  string  `json:"booking_date"`
	ExternalID   string  `json:"external_id"`
}
