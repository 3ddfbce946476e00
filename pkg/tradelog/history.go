package tradelog

import (
	"slices"
	"time"

	"stocklog/internal/metrics"
	"stocklog/pkg/ledger"
)

// replay runs the ledger over a stock's log and records its duration.
func replay(txs []ledger.Transaction) ledger.Result {
	start := time.Now()
	res := ledger.Process(txs)
	metrics.ObserveLedgerReplay(time.Since(start))
	return res
}

func buildHistory(stock Stock, txs []ledger.Transaction, settings ledger.FeeSettings, newestFirst bool) StockHistory {
	res := replay(txs)
	if newestFirst {
		slices.Reverse(res.History)
	}
	sum := res.Summary
	return StockHistory{
		Stock:          stock,
		Summary:        sum,
		History:        res.History,
		BreakEvenPrice: ledger.BreakEven(sum.TotalHoldings, sum.RemainingCostBasis, settings),
		FloatingPnL:    ledger.FloatingPnL(stock.CurrentPrice, sum.TotalHoldings, sum.RemainingCostBasis, settings),
		MarketValue:    marketValue(stock.CurrentPrice, sum.TotalHoldings),
	}
}

func marketValue(price float64, holdings int64) float64 {
	if holdings <= 0 {
		return 0
	}
	return price * float64(holdings)
}

// GetStockHistory replays a stock's whole log and returns the enriched
// history with its summary, break-even price and floating P&L at the stock's
// current mark price.
func (c *Core) GetStockHistory(stockID string, newestFirst bool) (*StockHistory, error) {
	stock, err := c.GetStock(stockID)
	if err != nil {
		return nil, err
	}
	txs, err := loadTransactions(c.db, stockID)
	if err != nil {
		return nil, err
	}
	settings, err := c.GetFeeSettings()
	if err != nil {
		return nil, err
	}
	history := buildHistory(*stock, txs, settings, newestFirst)
	return &history, nil
}

// GetDashboard summarises every stock.
func (c *Core) GetDashboard() (*Dashboard, error) {
	stocks, err := c.GetStocks()
	if err != nil {
		return nil, err
	}
	settings, err := c.GetFeeSettings()
	if err != nil {
		return nil, err
	}
	all, err := loadTransactions(c.db, "")
	if err != nil {
		return nil, err
	}
	byStock := map[string][]ledger.Transaction{}
	for _, t := range all {
		byStock[t.StockID] = append(byStock[t.StockID], t)
	}

	dash := &Dashboard{Stocks: make([]StockOverview, 0, len(stocks))}
	for _, stock := range stocks {
		h := buildHistory(stock, byStock[stock.ID], settings, false)
		tCount := 0
		for _, e := range h.History {
			if e.TTradeDetail != nil {
				tCount++
			}
		}
		overview := StockOverview{
			Stock:          stock,
			Holdings:       h.Summary.TotalHoldings,
			AvgCost:        h.Summary.AvgCost,
			CostBasis:      h.Summary.RemainingCostBasis,
			MarketValue:    h.MarketValue,
			RealizedPnL:    h.Summary.TotalRealizedPnL,
			FloatingPnL:    h.FloatingPnL,
			BreakEvenPrice: h.BreakEvenPrice,
			TTradeCount:    tCount,
		}
		dash.Stocks = append(dash.Stocks, overview)
		dash.TotalMarketValue += overview.MarketValue
		dash.TotalRealizedPnL += overview.RealizedPnL
		dash.TotalFloatingPnL += overview.FloatingPnL
	}
	dash.TotalPnL = dash.TotalRealizedPnL + dash.TotalFloatingPnL
	return dash, nil
}
