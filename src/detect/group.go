package detect

import (
	"sort"

	"subscan-server/src/models"
)

// GroupByMerchant clusters outgoing, valid transactions by merchant identity.
// Groups are keyed per provider as well, since detected subscriptions are
// persisted per (merchant, provider) and the same merchant may legitimately
// show up through two bank connections. Groups with fewer than 2 transactions
// carry no cadence signal and are dropped.
func GroupByMerchant(txns []models.NormalizedTransaction) map[string]models.MerchantGroup {
	groups := make(map[string]models.MerchantGroup)

	for _, tx := range txns {
		if !tx.Outgoing || tx.Invalid {
			continue
		}
		key := tx.MerchantKey + "|" + tx.Provider
		g, ok := groups[key]
		if !ok {
			g = models.MerchantGroup{
				MerchantKey: tx.MerchantKey,
				DisplayName: tx.DisplayName,
				Provider:    tx.Provider,
			}
		}
		g.Transactions = append(g.Transactions, tx)
		groups[key] = g
	}

	for key, g := range groups {
		if len(g.Transactions) < 2 {
			delete(groups, key)
			continue
		}
		sort.Slice(g.Transactions, func(i, j int) bool {
			return g.Transactions[i].BookingDate.Before(g.Transactions[j].BookingDate)
		})
		groups[key] = g
	}

	return groups
}
