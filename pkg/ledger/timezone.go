package ledger

import (
	"sort"
	"time"
)

const marketTimeZoneName = "Asia/Shanghai"

var marketLocation = loadMarketLocation()

func loadMarketLocation() *time.Location {
	location, err := time.LoadLocation(marketTimeZoneName)
	if err != nil {
		return time.FixedZone(marketTimeZoneName, 8*60*60)
	}
	return location
}

// MarketLocation returns the exchange time zone used for calendar days.
func MarketLocation() *time.Location {
	return marketLocation
}

// DayKey returns the YYYY-MM-DD trading day of t.
func DayKey(t time.Time) string {
	return t.In(marketLocation).Format("2006-01-02")
}

// StartOfDay returns midnight of t's trading day.
func StartOfDay(t time.Time) time.Time {
	local := t.In(marketLocation)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, marketLocation)
}

// sortedCopy orders transactions by (Timestamp, ID) without touching the input.
func sortedCopy(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
