package detect

import (
	"math"
	"time"

	"subscan-server/src/models"
)

// Interval stddev above this contributes no further confidence penalty.
const maxRegularityPenalty = 40

// Amounts varying more than 15% are inconsistent with a fixed-price
// subscription.
const amountVariationLimit = 0.15

type cadenceBand struct {
	cycle        string
	lo, hi       float64
	base         int
	minIntervals int
}

// Classification bands on the mean interval in days. Weekly and monthly need
// two intervals; quarterly and yearly are allowed one given their natural
// spacing.
var cadenceBands = []cadenceBand{
	{cycle: models.CycleWeekly, lo: 6, hi: 8, base: 75, minIntervals: 2},
	{cycle: models.CycleMonthly, lo: 28, hi: 32, base: 90, minIntervals: 2},
	{cycle: models.CycleQuarterly, lo: 85, hi: 95, base: 70, minIntervals: 1},
	{cycle: models.CycleYearly, lo: 350, hi: 380, base: 85, minIntervals: 1},
}

// InferCadence turns one merchant group into a subscription candidate.
// Returns false when the group has fewer than minSamples logical payments
// after same-day duplicates are collapsed. Irregular groups are still
// emitted, with confidence 0, so callers can surface "possible"
// subscriptions if they want to.
func InferCadence(group models.MerchantGroup, minSamples int) (models.SubscriptionCandidate, bool) {
	if minSamples < 2 {
		minSamples = 2
	}

	txns := collapseSameDay(group.Transactions)
	if len(txns) < minSamples {
		return models.SubscriptionCandidate{}, false
	}

	intervals := make([]float64, 0, len(txns)-1)
	for i := 1; i < len(txns); i++ {
		intervals = append(intervals, txns[i].BookingDate.Sub(txns[i-1].BookingDate).Hours()/24)
	}

	avgInterval := mean(intervals)
	sdInterval := stddev(intervals)

	cycle, base := classifyInterval(avgInterval, len(intervals))

	confidence := 0
	if cycle != models.CycleIrregular {
		confidence = base - int(math.Min(maxRegularityPenalty, math.Round(sdInterval)))
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 100 {
			confidence = 100
		}
	}

	amounts := make([]float64, len(txns))
	for i, tx := range txns {
		amounts[i] = tx.AbsoluteAmount
	}
	avgAmount := mean(amounts)

	// Wildly varying amounts are weak evidence for a fixed-price subscription.
	if avgAmount > 0 && stddev(amounts)/avgAmount > amountVariationLimit && confidence > 60 {
		confidence = 60
	}

	// Few observations mean low statistical confidence regardless of band.
	if len(txns) < 3 && confidence > 50 {
		confidence = 50
	}

	return models.SubscriptionCandidate{
		MerchantKey:   group.MerchantKey,
		DisplayName:   group.DisplayName,
		AverageAmount: avgAmount,
		Currency:      txns[0].Currency,
		BillingCycle:  cycle,
		Confidence:    confidence,
		SampleSize:    len(txns),
		FirstSeen:     txns[0].BookingDate,
		LastSeen:      txns[len(txns)-1].BookingDate,
		Provider:      group.Provider,
	}, true
}

// classifyInterval picks the band containing the mean interval. If more than
// one band could claim it, the one whose center is numerically closest wins.
func classifyInterval(avg float64, nIntervals int) (string, int) {
	cycle := models.CycleIrregular
	base := 0
	bestDist := math.MaxFloat64

	for _, b := range cadenceBands {
		if avg < b.lo || avg > b.hi || nIntervals < b.minIntervals {
			continue
		}
		center := (b.lo + b.hi) / 2
		if d := math.Abs(avg - center); d < bestDist {
			cycle = b.cycle
			base = b.base
			bestDist = d
		}
	}

	return cycle, base
}

// collapseSameDay merges duplicate same-day transactions (retries, reversals
// re-posted by the bank) into one logical payment. When duplicates disagree
// on amount, the one nearest the group's modal amount wins; otherwise the
// latest is kept. Input must be sorted by booking date ascending; output
// stays sorted.
func collapseSameDay(txns []models.NormalizedTransaction) []models.NormalizedTransaction {
	if len(txns) < 2 {
		return txns
	}

	modal := modalAmount(txns)

	out := make([]models.NormalizedTransaction, 0, len(txns))
	for i := 0; i < len(txns); {
		j := i
		for j < len(txns) && sameDay(txns[j].BookingDate, txns[i].BookingDate) {
			j++
		}
		best := txns[i]
		bestDist := math.Abs(best.AbsoluteAmount - modal)
		for _, tx := range txns[i+1 : j] {
			// <= keeps the latest among equally close duplicates.
			if d := math.Abs(tx.AbsoluteAmount - modal); d <= bestDist {
				best = tx
				bestDist = d
			}
		}
		out = append(out, best)
		i = j
	}
	return out
}

// modalAmount finds the most frequent absolute amount, cents-rounded. Ties go
// to the smaller amount so the result is deterministic.
func modalAmount(txns []models.NormalizedTransaction) float64 {
	counts := make(map[int64]int)
	for _, tx := range txns {
		counts[int64(math.Round(tx.AbsoluteAmount*100))]++
	}
	var modeCents int64
	modeCount := 0
	for cents, n := range counts {
		if n > modeCount || (n == modeCount && cents < modeCents) {
			modeCents = cents
			modeCount = n
		}
	}
	return float64(modeCents) / 100
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
