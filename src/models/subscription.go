package models

import "time"

// Billing cycles the cadence inferencer can classify.
const (
	CycleWeekly    = "weekly"
	CycleMonthly   = "monthly"
	CycleQuarterly = "quarterly"
	CycleYearly    = "yearly"
	CycleIrregular = "irregular"
)

// SubscriptionCandidate is what the cadence inferencer emits for one merchant
// group. It is not persisted directly; the reconciler decides what happens.
type SubscriptionCandidate struct {
	MerchantKey   string    `json:"merchant_key"`
	DisplayName   string    `json:"display_name"`
	AverageAmount float64   `json:"average_amount"`
	Currency      string    `json:"currency"`
	BillingCycle  string    `json:"billing_cycle"`
	Confidence    int       `json:"confidence"`
	SampleSize    int       `json:"sample_size"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Provider      string    `json:"provider"`
}

// Subscription is the durable record, unique per (user_id, merchant_name, provider).
type Subscription struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	MerchantName   string    `json:"merchant_name"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	BillingCycle   string    `json:"billing_cycle"`
	LastChargeDate time.Time `json:"last_charge_date"`
	Confidence     int       `json:"confidence"`
	Provider       string    `json:"provider"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MonthlyEquivalent converts a subscription amount to its monthly cost.
// Cycles without a known period are treated as monthly.
func MonthlyEquivalent(amount float64, cycle string) float64 {
	switch cycle {
	case CycleWeekly:
		return amount * 4.33
	case CycleQuarterly:
		return amount / 3
	case CycleYearly:
		return amount / 12
	default:
		return amount
	}
}
