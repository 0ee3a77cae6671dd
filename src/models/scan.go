package models

import "time"

// Scan statuses.
const (
	ScanPending   = "pending"
	ScanCompleted = "completed"
	ScanFailed    = "failed"
)

// ScanRecord tracks one orchestrated detection run for a user.
type ScanRecord struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	Provider           string     `json:"provider"`
	Status             string     `json:"status"`
	SubscriptionsFound int        `json:"subscriptions_found"`
	TotalMonthlyCost   float64    `json:"total_monthly_cost"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}
