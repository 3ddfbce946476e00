package ledger

import "time"

// MaxSellable returns how many shares can be sold at target under the T+1
// rule. Buys settle from the trading day after they were made; sells at or
// before target consume the settled quantity. The transaction with excludeID
// is ignored so an edit can be validated against everything else.
func MaxSellable(target time.Time, txs []Transaction, excludeID string) int64 {
	dayStart := StartOfDay(target)

	var sellable int64
	for _, tx := range sortedCopy(txs) {
		if excludeID != "" && tx.ID == excludeID {
			continue
		}
		switch tx.Type {
		case Buy:
			if tx.Timestamp.Before(dayStart) {
				sellable += tx.Quantity
			}
		case Sell:
			if !tx.Timestamp.After(target) {
				sellable -= tx.Quantity
			}
		}
	}
	if sellable < 0 {
		return 0
	}
	return sellable
}
