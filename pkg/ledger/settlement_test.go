package ledger

import (
	"testing"
	"time"
)

func TestMaxSellable_TPlusOne(t *testing.T) {
	txs := []Transaction{buyTx("b1", at(4, 10, 0), 10, 1000, 0)}

	sameDay := []struct {
		hour, minute int
	}{{10, 0}, {10, 1}, {15, 0}, {23, 59}}
	for _, tc := range sameDay {
		if got := MaxSellable(at(4, tc.hour, tc.minute), txs, ""); got != 0 {
			t.Errorf("same day %02d:%02d: expected 0 sellable, got %d", tc.hour, tc.minute, got)
		}
	}

	for _, day := range []int{5, 6, 20} {
		if got := MaxSellable(at(day, 0, 0), txs, ""); got != 1000 {
			t.Errorf("day %d: expected 1000 sellable, got %d", day, got)
		}
	}
}

func TestMaxSellable_BeforeBuy(t *testing.T) {
	txs := []Transaction{buyTx("b1", at(4, 10, 0), 10, 1000, 0)}
	if got := MaxSellable(at(3, 14, 0), txs, ""); got != 0 {
		t.Fatalf("expected 0 sellable before the buy, got %d", got)
	}
}

func TestMaxSellable_SellsConsumeSettledShares(t *testing.T) {
	txs := []Transaction{
		buyTx("b1", at(4, 10, 0), 10, 1000, 0),
		sellTx("s1", at(5, 10, 0), 11, 400, 0),
		buyTx("b2", at(5, 11, 0), 10, 300, 0),
	}

	if got := MaxSellable(at(5, 9, 0), txs, ""); got != 1000 {
		t.Errorf("before the sell: expected 1000, got %d", got)
	}
	if got := MaxSellable(at(5, 10, 0), txs, ""); got != 600 {
		t.Errorf("at the sell instant: expected 600, got %d", got)
	}
	// b2 is still unsettled on day 5
	if got := MaxSellable(at(5, 15, 0), txs, ""); got != 600 {
		t.Errorf("later on day 5: expected 600, got %d", got)
	}
	if got := MaxSellable(at(6, 9, 30), txs, ""); got != 900 {
		t.Errorf("day 6: expected 900, got %d", got)
	}
}

func TestMaxSellable_ExcludeID(t *testing.T) {
	txs := []Transaction{
		buyTx("b1", at(4, 10, 0), 10, 1000, 0),
		sellTx("s1", at(5, 10, 0), 11, 1000, 0),
	}
	if got := MaxSellable(at(5, 10, 0), txs, ""); got != 0 {
		t.Errorf("expected 0 with the sell counted, got %d", got)
	}
	if got := MaxSellable(at(5, 10, 0), txs, "s1"); got != 1000 {
		t.Errorf("expected 1000 with the sell excluded, got %d", got)
	}
}

func TestMaxSellable_ClampsAtZero(t *testing.T) {
	txs := []Transaction{sellTx("s1", at(4, 10, 0), 11, 500, 0)}
	if got := MaxSellable(at(5, 10, 0), txs, ""); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestDayKey_UsesMarketTimezone(t *testing.T) {
	// 2024-03-04 17:00 UTC is 2024-03-05 01:00 in Shanghai.
	utc := at(4, 0, 0).UTC().Add(17 * time.Hour)
	if got := DayKey(utc); got != "2024-03-05" {
		t.Fatalf("expected 2024-03-05, got %s", got)
	}
}
