package models

import "time"

// NormalizedTransaction is the engine-internal form of a RawTransaction.
// Built once by the normalizer and immutable afterwards.
type NormalizedTransaction struct {
	ExternalID     string    `json:"external_id"`
	AccountID      string    `json:"account_id"`
	Provider       string    `json:"provider"`
	MerchantKey    string    `json:"merchant_key"`
	DisplayName    string    `json:"display_name"`
	Amount         float64   `json:"amount"`
	AbsoluteAmount float64   `json:"absolute_amount"`
	Currency       string    `json:"currency"`
	BookingDate    time.Time `json:"booking_date"`
	Outgoing       bool      `json:"outgoing"`
	Invalid        bool      `json:"invalid"`
}
