package detect

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"subscan-server/src/models"
)

var punctRe = regexp.MustCompile(`[^a-z0-9 ]+`)

// Date layouts seen across providers. Plaid sends ISO dates, Nordigen sends
// ISO or RFC3339, some CSV-backed feeds send US slash dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// Normalize converts a provider transaction into the canonical engine shape.
// It never fails: unparseable amounts or dates are coerced to zero values and
// the record is flagged Invalid so the grouper drops it.
func Normalize(raw models.RawTransaction) models.NormalizedTransaction {
	norm := models.NormalizedTransaction{
		ExternalID:  raw.ExternalID,
		AccountID:   raw.AccountID,
		Provider:    raw.Provider,
		Currency:    raw.Currency,
		DisplayName: "Unknown",
		MerchantKey: "unknown",
	}

	if raw.MerchantName != nil && strings.TrimSpace(*raw.MerchantName) != "" {
		norm.DisplayName = strings.TrimSpace(*raw.MerchantName)
		norm.MerchantKey = MerchantKey(*raw.MerchantName)
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(raw.Amount), 64)
	if err != nil {
		norm.Invalid = true
	} else {
		norm.Amount = amount
		norm.AbsoluteAmount = math.Abs(amount)
		norm.Outgoing = amount < 0
	}

	date, ok := parseBookingDate(raw.BookingDate)
	if !ok {
		norm.Invalid = true
	}
	norm.BookingDate = date

	return norm
}

func parseBookingDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MerchantKey reduces a merchant name to the identity used for grouping:
// lower-cased, punctuation stripped, trailing reference codes and store
// numbers dropped, whitespace collapsed.
func MerchantKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = punctRe.ReplaceAllString(s, " ")

	fields := strings.Fields(s)
	// Trailing digits-only tokens are store numbers, card suffixes or payment
	// references ("netflix 4029", "spotify x9183"), not merchant identity.
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		if isDigits(last) || (len(last) > 1 && last[0] == 'x' && isDigits(last[1:])) {
			fields = fields[:len(fields)-1]
			continue
		}
		break
	}

	key := strings.Join(fields, " ")
	if key == "" {
		return "unknown"
	}
	return key
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
