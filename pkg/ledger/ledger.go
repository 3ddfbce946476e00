package ledger

import (
	"math"
	"time"
)

type cycleState struct {
	active    bool
	openedAt  time.Time
	buyCost   float64
	buyQty    int64
	realized  float64
	tCount    int
	tProfit   float64
	lastStats *CycleStats
}

func (c *cycleState) start(at time.Time) {
	last := c.lastStats
	*c = cycleState{active: true, openedAt: at, lastStats: last}
}

func (c *cycleState) close(at time.Time) *CycleStats {
	stats := &CycleStats{
		HoldingDays:      holdingDays(c.openedAt, at),
		TotalBuyCost:     c.buyCost,
		TotalRealizedPnL: c.realized,
		TTradeCount:      c.tCount,
		TTradeProfit:     c.tProfit,
	}
	if c.buyQty > 0 {
		stats.AvgBuyPrice = c.buyCost / float64(c.buyQty)
	}
	if c.buyCost > 0 {
		stats.PnLPercent = c.realized / c.buyCost * 100
	}
	c.lastStats = stats
	return stats
}

func holdingDays(from, to time.Time) int {
	days := int(math.Ceil(float64(to.Sub(from).Abs()) / float64(24*time.Hour)))
	return max(1, days)
}

type position struct {
	holdings  int64
	costBasis float64
	realized  float64
}

func (p *position) avgCost() float64 {
	if p.holdings <= 0 {
		return 0
	}
	return p.costBasis / float64(p.holdings)
}

func (p *position) state() holdingsState {
	if p.holdings <= 0 {
		return stateFlat
	}
	return stateOpen
}

// Process replays the whole transaction log in (Timestamp, ID) order with a
// moving weighted-average cost basis. It returns the enriched history in
// chronological order and the final summary. The input is not modified.
func Process(txs []Transaction) Result {
	sorted := sortedCopy(txs)
	matches := MatchIntraday(sorted)

	var (
		pos   position
		cycle cycleState
	)
	history := make([]EnrichedTransaction, 0, len(sorted))

	for _, tx := range sorted {
		var detail *TTradeDetail
		if d, ok := matches.Details[tx.ID]; ok {
			copied := *d
			detail = &copied
		}
		participant := matches.IsParticipant(tx.ID)

		var decision tagDecision
		if tx.Type == Buy {
			decision = decideTag(pos.state(), Buy, detail, participant)
			if decision.startCycle {
				cycle.start(tx.Timestamp)
			}
		}

		if detail != nil {
			cycle.tCount++
			detail.CycleIndex = cycle.tCount
			cycle.tProfit += detail.Profit
		}

		enriched := EnrichedTransaction{
			Transaction:  tx,
			IsTTrade:     participant,
			TTradeDetail: detail,
		}

		switch tx.Type {
		case Buy:
			cost := tx.Price*float64(tx.Quantity) + tx.Fees
			pos.holdings += tx.Quantity
			pos.costBasis += cost
			cycle.buyCost += cost
			cycle.buyQty += tx.Quantity
		case Sell:
			revenue := tx.Price*float64(tx.Quantity) - tx.Fees
			cogs := float64(tx.Quantity) * pos.avgCost()
			pnl := revenue - cogs
			pos.realized += pnl
			cycle.realized += pnl
			pos.holdings -= tx.Quantity
			pos.costBasis -= cogs
			// An oversold log flattens the position instead of going short.
			if pos.holdings <= 0 {
				pos.holdings = 0
				pos.costBasis = 0
			}
			enriched.TradePnL = &pnl
			decision = decideTag(pos.state(), Sell, detail, participant)
		}

		enriched.PositionTag = decision.tag
		if decision.tag == TagClose && cycle.active {
			enriched.CycleStats = cycle.close(tx.Timestamp)
		}
		enriched.RunningHoldings = pos.holdings
		enriched.RunningAvgCost = pos.avgCost()
		history = append(history, enriched)
	}

	return Result{
		Summary: StockSummary{
			TotalHoldings:      pos.holdings,
			AvgCost:            pos.avgCost(),
			TotalRealizedPnL:   pos.realized,
			RemainingCostBasis: pos.costBasis,
			LastCycleStats:     cycle.lastStats,
		},
		History: history,
	}
}
