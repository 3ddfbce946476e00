package api

import (
	"stocklog/pkg/ledger"
	"stocklog/pkg/tradelog"
)

type stockPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type pricePayload struct {
	Price *float64 `json:"price"`
}

type refreshPriceResponse struct {
	Stock *tradelog.Stock       `json:"stock"`
	Quote *tradelog.QuoteResult `json:"quote"`
}

// transactionPayload carries a trade as entered. Timestamp accepts RFC 3339
// or "2006-01-02 15:04" market time; empty means now.
type transactionPayload struct {
	StockID   string  `json:"stock_id"`
	Type      string  `json:"type"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Timestamp string  `json:"timestamp"`
}

type maxSellableResponse struct {
	StockID     string `json:"stock_id"`
	At          string `json:"at,omitempty"`
	MaxSellable int64  `json:"max_sellable"`
}

type feePreviewPayload struct {
	Type     string  `json:"type"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

type feePreviewResponse struct {
	Breakdown ledger.FeeBreakdown `json:"breakdown"`
	Total     float64             `json:"total"`
	// Amount is the cash leg: paid for buys, received for sells.
	Amount float64 `json:"amount"`
}

type reviewPayload struct {
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type storageInfoResponse struct {
	DBName       string   `json:"db_name"`
	DBPath       string   `json:"db_path"`
	DataDir      string   `json:"data_dir"`
	Available    []string `json:"available"`
	CanSwitch    bool     `json:"can_switch"`
	SwitchReason string   `json:"switch_reason,omitempty"`
}

type storageSwitchPayload struct {
	DBName string `json:"db_name"`
	Create bool   `json:"create"`
}
