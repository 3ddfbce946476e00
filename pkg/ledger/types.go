package ledger

import "time"

// TransactionType is the side of a trade.
type TransactionType string

const (
	Buy  TransactionType = "buy"
	Sell TransactionType = "sell"
)

// Valid reports whether t is a known side.
func (t TransactionType) Valid() bool {
	return t == Buy || t == Sell
}

// LotSize is the board lot for A-share orders.
const LotSize = 100

// FeeSettings holds the broker and exchange rates applied to every trade.
type FeeSettings struct {
	CommissionRate  float64 `json:"commission_rate"`
	MinFiveYuan     bool    `json:"min_five_yuan"`
	StampDutyRate   float64 `json:"stamp_duty_rate"`
	TransferFeeRate float64 `json:"transfer_fee_rate"`
}

// DefaultFeeSettings returns the common retail rates: 0.025% commission with a
// 5 yuan floor, 0.05% stamp duty on sells and 0.001% transfer fee.
func DefaultFeeSettings() FeeSettings {
	return FeeSettings{
		CommissionRate:  0.00025,
		MinFiveYuan:     true,
		StampDutyRate:   0.0005,
		TransferFeeRate: 0.00001,
	}
}

// Transaction is one recorded trade of a single stock.
type Transaction struct {
	ID          string          `json:"id"`
	StockID     string          `json:"stock_id"`
	Type        TransactionType `json:"type"`
	Price       float64         `json:"price"`
	Quantity    int64           `json:"quantity"`
	Timestamp   time.Time       `json:"timestamp"`
	Fees        float64         `json:"fees"`
	TotalAmount float64         `json:"total_amount"`
}

// TTradeKind distinguishes buy-then-sell from sell-then-buy round trips.
type TTradeKind string

const (
	TTradeStandard TTradeKind = "standard"
	TTradeReverse  TTradeKind = "reverse"
)

// TTradeDetail describes a same-day round trip completed by a transaction.
type TTradeDetail struct {
	// Index is the sequence of the round trip within its trading day.
	Index int `json:"index"`
	// CycleIndex is the sequence of the round trip within its position cycle.
	CycleIndex    int        `json:"cycle_index"`
	PairID        string     `json:"pair_id"`
	Kind          TTradeKind `json:"kind"`
	TimeInterval  string     `json:"time_interval"`
	GapMinutes    int64      `json:"gap_minutes"`
	Profit        float64    `json:"profit"`
	ProfitPercent float64    `json:"profit_percent"`
}

// CycleStats summarises a position cycle from open to close.
type CycleStats struct {
	HoldingDays      int     `json:"holding_days"`
	TotalBuyCost     float64 `json:"total_buy_cost"`
	AvgBuyPrice      float64 `json:"avg_buy_price"`
	TotalRealizedPnL float64 `json:"total_realized_pnl"`
	PnLPercent       float64 `json:"pnl_percent"`
	TTradeCount      int     `json:"t_trade_count"`
	TTradeProfit     float64 `json:"t_trade_profit"`
}

// PositionTag marks transactions that open or close a position cycle.
type PositionTag string

const (
	TagNone  PositionTag = ""
	TagOpen  PositionTag = "open"
	TagClose PositionTag = "close"
)

// EnrichedTransaction is a transaction with the position state after it.
type EnrichedTransaction struct {
	Transaction
	RunningHoldings int64         `json:"running_holdings"`
	RunningAvgCost  float64       `json:"running_avg_cost"`
	TradePnL        *float64      `json:"trade_pnl,omitempty"`
	PositionTag     PositionTag   `json:"position_tag,omitempty"`
	IsTTrade        bool          `json:"is_t_trade"`
	TTradeDetail    *TTradeDetail `json:"t_trade_detail,omitempty"`
	CycleStats      *CycleStats   `json:"cycle_stats,omitempty"`
}

// StockSummary is the terminal state of a full ledger pass.
type StockSummary struct {
	TotalHoldings      int64       `json:"total_holdings"`
	AvgCost            float64     `json:"avg_cost"`
	TotalRealizedPnL   float64     `json:"total_realized_pnl"`
	RemainingCostBasis float64     `json:"remaining_cost_basis"`
	LastCycleStats     *CycleStats `json:"last_cycle_stats,omitempty"`
}

// Result is the output of Process.
type Result struct {
	Summary StockSummary          `json:"summary"`
	History []EnrichedTransaction `json:"history"`
}

// ValidationCode classifies a rejected transaction.
type ValidationCode string

const (
	CodeInvalidPrice       ValidationCode = "invalid_price"
	CodeInvalidQuantity    ValidationCode = "invalid_quantity"
	CodeInsufficientShares ValidationCode = "insufficient_shares"
)

// ValidationResult is returned by Validate. MaxSellable is set when the
// settlement ceiling was computed.
type ValidationResult struct {
	Valid       bool           `json:"valid"`
	Code        ValidationCode `json:"code,omitempty"`
	Message     string         `json:"message,omitempty"`
	MaxSellable *int64         `json:"max_sellable,omitempty"`
}
