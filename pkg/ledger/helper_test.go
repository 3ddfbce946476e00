package ledger

import (
	"math"
	"testing"
	"time"
)

var zeroFees = FeeSettings{}

// at returns a market-time instant on the given day.
func at(day int, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, MarketLocation())
}

func buyTx(id string, ts time.Time, price float64, qty int64, fees float64) Transaction {
	return Transaction{ID: id, StockID: "s1", Type: Buy, Price: price, Quantity: qty, Timestamp: ts, Fees: fees}
}

func sellTx(id string, ts time.Time, price float64, qty int64, fees float64) Transaction {
	return Transaction{ID: id, StockID: "s1", Type: Sell, Price: price, Quantity: qty, Timestamp: ts, Fees: fees}
}

func floatEquals(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func assertFloatEquals(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if !floatEquals(got, want, 0.001) {
		t.Errorf("%s: got %.4f, want %.4f", msg, got, want)
	}
}

func findEnriched(t *testing.T, history []EnrichedTransaction, id string) EnrichedTransaction {
	t.Helper()
	for _, e := range history {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("transaction %s not in history", id)
	return EnrichedTransaction{}
}
