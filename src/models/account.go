package models

type Account struct {
	ID           int64  `json:"id"`
	ConnectionID int64  `json:"connection_id"`
	AccountID    string `json:"account_id"`
	Name         string `json:"name"`
	Mask         string `json:"mask"`
	Type         string `json:"type"`
	Currency     string `json:"currency"`
	CreatedAt    string `json:"created_at"`
}
