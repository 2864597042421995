package common

import "time"

// Freshness TTLs for persisted observations
const (
	FreshnessBitcoinPrice = 2 * time.Hour
	FreshnessStockPrice   = 24 * time.Hour
	FreshnessHoldings     = 7 * 24 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL of now.
func IsFresh(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
