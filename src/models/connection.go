package models

// Connection is one linked bank data source for a user (a Plaid item, a
// Nordigen requisition, ...).
type Connection struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	Provider        string `json:"provider"`
	ProviderItemID  string `json:"provider_item_id"`
	AccessToken     string `json:"-"`
	InstitutionName string `json:"institution_name"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}
