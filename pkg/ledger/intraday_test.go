package ledger

import (
	"testing"
	"time"
)

func TestMatchIntraday_Standard(t *testing.T) {
	txs := []Transaction{
		buyTx("b1", at(4, 9, 30), 10, 1000, 0),
		sellTx("s1", at(4, 14, 0), 10.5, 1000, 0),
	}
	m := MatchIntraday(txs)

	if !m.IsParticipant("b1") || !m.IsParticipant("s1") {
		t.Fatal("expected both legs to be participants")
	}
	if _, ok := m.Details["b1"]; ok {
		t.Fatal("the opening leg should not carry a detail")
	}
	d, ok := m.Details["s1"]
	if !ok {
		t.Fatal("expected detail on the completing sell")
	}
	if d.Kind != TTradeStandard {
		t.Errorf("expected standard, got %s", d.Kind)
	}
	if d.PairID != "b1" {
		t.Errorf("expected pair b1, got %s", d.PairID)
	}
	if d.Index != 1 {
		t.Errorf("expected day index 1, got %d", d.Index)
	}
	if d.TimeInterval != "4:30" {
		t.Errorf("expected interval 4:30, got %s", d.TimeInterval)
	}
	if d.GapMinutes != 270 {
		t.Errorf("expected 270 minutes, got %d", d.GapMinutes)
	}
	assertFloatEquals(t, d.Profit, 500, "profit")
	assertFloatEquals(t, d.ProfitPercent, 5, "profit percent")
}

func TestMatchIntraday_Reverse(t *testing.T) {
	txs := []Transaction{
		sellTx("s1", at(5, 9, 35), 11, 1000, 0),
		buyTx("b1", at(5, 10, 40), 10.5, 1000, 0),
	}
	m := MatchIntraday(txs)

	d, ok := m.Details["b1"]
	if !ok {
		t.Fatal("expected detail on the completing buy")
	}
	if d.Kind != TTradeReverse {
		t.Errorf("expected reverse, got %s", d.Kind)
	}
	if d.TimeInterval != "1:05" {
		t.Errorf("expected interval 1:05, got %s", d.TimeInterval)
	}
	assertFloatEquals(t, d.Profit, 500, "profit")
}

func TestMatchIntraday_ProRataFees(t *testing.T) {
	txs := []Transaction{
		buyTx("b1", at(4, 9, 30), 10, 1000, 10),
		sellTx("s1", at(4, 14, 0), 10.5, 500, 8),
	}
	m := MatchIntraday(txs)
	// (5250 - 8) - (5000 + 5)
	assertFloatEquals(t, m.Details["s1"].Profit, 237, "profit net of pro-rata fees")
}

func TestMatchIntraday_LIFO(t *testing.T) {
	txs := []Transaction{
		buyTx("b1", at(4, 9, 30), 10, 500, 0),
		buyTx("b2", at(4, 10, 0), 12, 500, 0),
		sellTx("s1", at(4, 14, 0), 11, 500, 0),
	}
	m := MatchIntraday(txs)

	d := m.Details["s1"]
	if d.PairID != "b2" {
		t.Fatalf("expected latest buy b2 to be matched, got %s", d.PairID)
	}
	assertFloatEquals(t, d.Profit, -500, "profit against b2")
	if m.IsParticipant("b1") {
		t.Fatal("b1 should remain unmatched")
	}
}

func TestMatchIntraday_SplitAcrossRemnants(t *testing.T) {
	txs := []Transaction{
		buyTx("b1", at(4, 9, 30), 10, 300, 0),
		buyTx("b2", at(4, 10, 0), 11, 300, 0),
		sellTx("s1", at(4, 14, 0), 12, 500, 0),
	}
	m := MatchIntraday(txs)

	d := m.Details["s1"]
	// 300 against b2 then 200 against b1
	assertFloatEquals(t, d.Profit, 300+400, "accumulated profit")
	if d.PairID != "b2" {
		t.Errorf("expected first counterparty b2, got %s", d.PairID)
	}
	if d.Index != 1 {
		t.Errorf("expected a single sequence slot, got %d", d.Index)
	}
	if !m.IsParticipant("b1") || !m.IsParticipant("b2") {
		t.Error("expected both buys to be participants")
	}
}

func TestMatchIntraday_DayCounter(t *testing.T) {
	txs := []Transaction{
		buyTx("b1", at(4, 9, 30), 10, 100, 0),
		sellTx("s1", at(4, 10, 0), 10.2, 100, 0),
		buyTx("b2", at(4, 11, 0), 10, 100, 0),
		sellTx("s2", at(4, 13, 0), 10.3, 100, 0),
		buyTx("b3", at(5, 9, 30), 10, 100, 0),
		sellTx("s3", at(5, 10, 0), 10.1, 100, 0),
	}
	m := MatchIntraday(txs)

	if m.Details["s1"].Index != 1 || m.Details["s2"].Index != 2 {
		t.Errorf("expected day indexes 1 and 2, got %d and %d", m.Details["s1"].Index, m.Details["s2"].Index)
	}
	if m.Details["s3"].Index != 1 {
		t.Errorf("expected counter reset on a new day, got %d", m.Details["s3"].Index)
	}
}

func TestMatchIntraday_NeverCrossesDays(t *testing.T) {
	txs := []Transaction{
		buyTx("b1", at(4, 14, 0), 10, 1000, 0),
		sellTx("s1", at(5, 9, 30), 11, 1000, 0),
	}
	m := MatchIntraday(txs)
	if len(m.Details) != 0 || len(m.Participants) != 0 {
		t.Fatalf("expected no pairing across days, got %+v", m)
	}
}

func TestFormatGap(t *testing.T) {
	cases := map[int64]string{
		0:   "0:00",
		59:  "0:59",
		60:  "1:00",
		125: "2:05",
		600: "10:00",
	}
	for mins, want := range cases {
		got := formatGap(time.Duration(mins) * time.Minute)
		if got != want {
			t.Errorf("formatGap(%dm) = %s, want %s", mins, got, want)
		}
	}
}
