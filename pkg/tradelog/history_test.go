package tradelog

import (
	"testing"

	"stocklog/pkg/ledger"
)

func TestGetStockHistoryWithTTrade(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	useZeroFees(t, core)

	stock := testStock(t, core, "600519", "贵州茅台")
	open := testBuy(t, core, stock.ID, marketTime(4, 9, 30), 10, 1000)
	testBuy(t, core, stock.ID, marketTime(5, 10, 0), 10, 1000)
	sell := testSell(t, core, stock.ID, marketTime(5, 14, 30), 10.5, 1000)
	_, err := core.UpdateStockPrice(stock.ID, 12)
	assertNoError(t, err, "set mark price")

	h, err := core.GetStockHistory(stock.ID, false)
	assertNoError(t, err, "get history")
	if len(h.History) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(h.History))
	}
	if h.History[0].ID != open.ID || h.History[0].PositionTag != ledger.TagOpen {
		t.Fatalf("expected first buy to open the cycle, got %+v", h.History[0])
	}

	last := h.History[2]
	if last.ID != sell.ID || !last.IsTTrade || last.TTradeDetail == nil {
		t.Fatalf("expected the sell to complete a T-trade, got %+v", last)
	}
	if last.TTradeDetail.Kind != ledger.TTradeStandard || last.TTradeDetail.Index != 1 {
		t.Fatalf("unexpected T-trade detail: %+v", last.TTradeDetail)
	}
	assertFloatEquals(t, last.TTradeDetail.Profit, 500, "T-trade profit")
	if last.TradePnL == nil {
		t.Fatalf("expected trade pnl on the sell")
	}
	assertFloatEquals(t, *last.TradePnL, 500, "sell pnl")

	if h.Summary.TotalHoldings != 1000 {
		t.Fatalf("expected 1000 shares held, got %d", h.Summary.TotalHoldings)
	}
	assertFloatEquals(t, h.Summary.AvgCost, 10, "avg cost")
	assertFloatEquals(t, h.Summary.TotalRealizedPnL, 500, "realized pnl")
	assertFloatEquals(t, h.BreakEvenPrice, 10, "break-even without fees")
	assertFloatEquals(t, h.FloatingPnL, 2000, "floating pnl")
	assertFloatEquals(t, h.MarketValue, 12000, "market value")

	reversed, err := core.GetStockHistory(stock.ID, true)
	assertNoError(t, err, "get history newest first")
	if reversed.History[0].ID != sell.ID || reversed.History[2].ID != open.ID {
		t.Fatalf("expected newest-first order")
	}
}

func TestGetStockHistoryClosedCycle(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	useZeroFees(t, core)

	stock := testStock(t, core, "000001", "平安银行")
	testBuy(t, core, stock.ID, marketTime(4, 10, 0), 10, 1000)
	sell := testSell(t, core, stock.ID, marketTime(6, 10, 0), 11, 1000)
	_, err := core.UpdateStockPrice(stock.ID, 15)
	assertNoError(t, err, "set mark price")

	h, err := core.GetStockHistory(stock.ID, false)
	assertNoError(t, err, "get history")
	closing := h.History[1]
	if closing.ID != sell.ID || closing.PositionTag != ledger.TagClose || closing.CycleStats == nil {
		t.Fatalf("expected the sell to close the cycle, got %+v", closing)
	}
	assertFloatEquals(t, closing.CycleStats.TotalRealizedPnL, 1000, "cycle pnl")
	assertFloatEquals(t, closing.CycleStats.PnLPercent, 10, "cycle pnl percent")
	if h.Summary.LastCycleStats == nil {
		t.Fatalf("expected last cycle stats on the summary")
	}
	if h.Summary.TotalHoldings != 0 {
		t.Fatalf("expected flat position, got %d", h.Summary.TotalHoldings)
	}
	assertFloatEquals(t, h.BreakEvenPrice, 0, "break-even when flat")
	assertFloatEquals(t, h.FloatingPnL, 0, "floating when flat")
	assertFloatEquals(t, h.MarketValue, 0, "market value when flat")
}

func TestGetStockHistoryNotFound(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := core.GetStockHistory("missing", false)
	assertErrorCode(t, err, ErrCodeNotFound, "missing stock")
}

func TestGetDashboard(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	useZeroFees(t, core)

	active := testStock(t, core, "600519", "贵州茅台")
	testBuy(t, core, active.ID, marketTime(4, 9, 30), 10, 1000)
	testBuy(t, core, active.ID, marketTime(5, 10, 0), 10, 1000)
	testSell(t, core, active.ID, marketTime(5, 14, 30), 10.5, 1000)
	_, err := core.UpdateStockPrice(active.ID, 12)
	assertNoError(t, err, "set mark price")

	idle := testStock(t, core, "000001", "平安银行")

	dash, err := core.GetDashboard()
	assertNoError(t, err, "get dashboard")
	if len(dash.Stocks) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(dash.Stocks))
	}

	row := dash.Stocks[0]
	if row.Stock.ID != active.ID || row.Holdings != 1000 || row.TTradeCount != 1 {
		t.Fatalf("unexpected active row: %+v", row)
	}
	assertFloatEquals(t, row.CostBasis, 10000, "cost basis")
	assertFloatEquals(t, row.MarketValue, 12000, "market value")
	assertFloatEquals(t, row.RealizedPnL, 500, "realized")
	assertFloatEquals(t, row.FloatingPnL, 2000, "floating")

	if dash.Stocks[1].Stock.ID != idle.ID || dash.Stocks[1].Holdings != 0 {
		t.Fatalf("unexpected idle row: %+v", dash.Stocks[1])
	}

	assertFloatEquals(t, dash.TotalMarketValue, 12000, "total market value")
	assertFloatEquals(t, dash.TotalRealizedPnL, 500, "total realized")
	assertFloatEquals(t, dash.TotalFloatingPnL, 2000, "total floating")
	assertFloatEquals(t, dash.TotalPnL, 2500, "total pnl")
}
