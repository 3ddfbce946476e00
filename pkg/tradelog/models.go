package tradelog

import (
	"time"

	"stocklog/pkg/ledger"
)

// Stock is a tracked A-share instrument.
type Stock struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	CurrentPrice float64   `json:"current_price"`
	PriceUpdated *string   `json:"price_updated_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AddTransactionRequest is the input for recording or editing a trade.
// Fees and total amount are derived from the current fee settings.
type AddTransactionRequest struct {
	StockID   string                 `json:"stock_id"`
	Type      ledger.TransactionType `json:"type"`
	Price     float64                `json:"price"`
	Quantity  int64                  `json:"quantity"`
	Timestamp time.Time              `json:"timestamp"`
}

// StockHistory is the full derived view of one stock.
type StockHistory struct {
	Stock          Stock                        `json:"stock"`
	Summary        ledger.StockSummary          `json:"summary"`
	History        []ledger.EnrichedTransaction `json:"history"`
	BreakEvenPrice float64                      `json:"break_even_price"`
	FloatingPnL    float64                      `json:"floating_pnl"`
	MarketValue    float64                      `json:"market_value"`
}

// StockOverview is one dashboard row.
type StockOverview struct {
	Stock          Stock   `json:"stock"`
	Holdings       int64   `json:"holdings"`
	AvgCost        float64 `json:"avg_cost"`
	CostBasis      float64 `json:"cost_basis"`
	MarketValue    float64 `json:"market_value"`
	RealizedPnL    float64 `json:"realized_pnl"`
	FloatingPnL    float64 `json:"floating_pnl"`
	BreakEvenPrice float64 `json:"break_even_price"`
	TTradeCount    int     `json:"t_trade_count"`
}

// Dashboard aggregates every stock.
type Dashboard struct {
	Stocks           []StockOverview `json:"stocks"`
	TotalMarketValue float64         `json:"total_market_value"`
	TotalRealizedPnL float64         `json:"total_realized_pnl"`
	TotalFloatingPnL float64         `json:"total_floating_pnl"`
	TotalPnL         float64         `json:"total_pnl"`
}

// DataDocumentVersion is the backup format version written by ExportData.
const DataDocumentVersion = 2

// DataDocument is the portable backup of all user data.
type DataDocument struct {
	Version      int                  `json:"version"`
	ExportedAt   time.Time            `json:"exported_at"`
	Stocks       []Stock              `json:"stocks"`
	Transactions []ledger.Transaction `json:"transactions"`
	Settings     ledger.FeeSettings   `json:"settings"`
}

// OperationLog records a user-visible change.
type OperationLog struct {
	ID        int64    `json:"id"`
	Operation string   `json:"operation_type"`
	StockID   *string  `json:"stock_id,omitempty"`
	Details   *string  `json:"details,omitempty"`
	OldValue  *float64 `json:"old_value,omitempty"`
	NewValue  *float64 `json:"new_value,omitempty"`
	CreatedAt *string  `json:"created_at,omitempty"`
}

// QuoteResult is a fetched mark price.
type QuoteResult struct {
	Code   string  `json:"code"`
	Name   string  `json:"name,omitempty"`
	Price  float64 `json:"price"`
	Source string  `json:"source"`
	Cached bool    `json:"cached"`
}
