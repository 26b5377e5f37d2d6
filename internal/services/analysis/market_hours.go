package analysis

import (
	"time"

	"github.com/bobmcallan/chartsage/internal/models"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// IsMarketOpen applies the scanner's weekend rule: closed all of Saturday
// and Sunday in UTC, open otherwise.
func IsMarketOpen(now time.Time) bool {
	switch now.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// marketStatusAt reports the scanner availability at now.
func marketStatusAt(now time.Time) models.MarketStatus {
	status := models.MarketStatus{
		Open:      IsMarketOpen(now),
		Condition: "open",
		Timestamp: now.UTC(),
	}
	if !status.Open {
		status.Condition = "closed"
		status.Reason = "Forex market is closed on weekends (UTC)"
	}
	return status
}
