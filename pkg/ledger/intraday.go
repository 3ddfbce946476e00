package ledger

import (
	"fmt"
	"time"
)

// IntradayMatches holds the outcome of same-day pair matching.
type IntradayMatches struct {
	// Details is keyed by the id of the transaction that completed a pairing.
	Details map[string]*TTradeDetail
	// Participants contains every transaction id that took part in a pairing.
	Participants map[string]struct{}
}

// IsParticipant reports whether id took part in any same-day pairing.
func (m IntradayMatches) IsParticipant(id string) bool {
	_, ok := m.Participants[id]
	return ok
}

type remnant struct {
	tx        Transaction
	remaining int64
}

type dayMatcher struct {
	buys    []*remnant
	sells   []*remnant
	counter int
	// matchedCost tracks the buy-side cost behind each detail for ProfitPercent.
	matchedCost map[string]float64
	out         IntradayMatches
}

// MatchIntraday pairs opposing trades made on the same trading day. Each
// incoming trade consumes the most recently recorded unmatched trade of the
// other side first. Pairing never crosses a day boundary.
func MatchIntraday(txs []Transaction) IntradayMatches {
	out := IntradayMatches{
		Details:      map[string]*TTradeDetail{},
		Participants: map[string]struct{}{},
	}

	var (
		order  []string
		groups = map[string][]Transaction{}
	)
	for _, tx := range sortedCopy(txs) {
		day := DayKey(tx.Timestamp)
		if _, ok := groups[day]; !ok {
			order = append(order, day)
		}
		groups[day] = append(groups[day], tx)
	}

	for _, day := range order {
		m := &dayMatcher{matchedCost: map[string]float64{}, out: out}
		for _, tx := range groups[day] {
			m.process(tx)
		}
		m.finish()
	}
	return out
}

func (m *dayMatcher) process(tx Transaction) {
	remaining := tx.Quantity
	stack := &m.buys
	if tx.Type == Buy {
		stack = &m.sells
	}

	for remaining > 0 && len(*stack) > 0 {
		top := (*stack)[len(*stack)-1]
		qty := min(remaining, top.remaining)
		if remaining == tx.Quantity {
			m.counter++
		}
		m.out.Participants[tx.ID] = struct{}{}
		m.out.Participants[top.tx.ID] = struct{}{}

		buyLeg, sellLeg := top.tx, tx
		kind := TTradeStandard
		if tx.Type == Buy {
			buyLeg, sellLeg = tx, top.tx
			kind = TTradeReverse
		}
		revenue := sellLeg.Price*float64(qty) - proRataFee(sellLeg, qty)
		cost := buyLeg.Price*float64(qty) + proRataFee(buyLeg, qty)
		gap := tx.Timestamp.Sub(top.tx.Timestamp).Abs()

		detail, ok := m.out.Details[tx.ID]
		if !ok {
			detail = &TTradeDetail{Index: m.counter, PairID: top.tx.ID, Kind: kind}
			m.out.Details[tx.ID] = detail
		}
		detail.Profit += revenue - cost
		detail.TimeInterval = formatGap(gap)
		detail.GapMinutes = int64(gap / time.Minute)
		m.matchedCost[tx.ID] += cost

		remaining -= qty
		top.remaining -= qty
		if top.remaining <= 0 {
			*stack = (*stack)[:len(*stack)-1]
		}
	}

	if remaining > 0 {
		pending := &remnant{tx: tx, remaining: remaining}
		if tx.Type == Buy {
			m.buys = append(m.buys, pending)
		} else {
			m.sells = append(m.sells, pending)
		}
	}
}

func (m *dayMatcher) finish() {
	for id, cost := range m.matchedCost {
		if cost > 0 {
			detail := m.out.Details[id]
			detail.ProfitPercent = detail.Profit / cost * 100
		}
	}
}

// proRataFee allocates a share of tx's fee to qty of its shares.
func proRataFee(tx Transaction, qty int64) float64 {
	if tx.Quantity <= 0 {
		return 0
	}
	return tx.Fees * float64(qty) / float64(tx.Quantity)
}

// formatGap renders a duration as H:MM, truncated to whole minutes.
func formatGap(d time.Duration) string {
	mins := int64(d / time.Minute)
	return fmt.Sprintf("%d:%02d", mins/60, mins%60)
}
