package models

// MerchantGroup is a per-scan working structure: one merchant's outgoing
// transactions for one user and provider, sorted by booking date ascending.
// Never persisted.
type MerchantGroup struct {
	MerchantKey  string
	DisplayName  string
	Provider     string
	Transactions []NormalizedTransaction
}
