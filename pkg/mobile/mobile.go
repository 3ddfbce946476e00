package mobile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stocklog/pkg/ledger"
	"stocklog/pkg/tradelog"
)

// Core wraps the trade log for gomobile bindings and webview shells. Every
// method takes and returns plain strings, numbers and JSON.
type Core struct {
	core *tradelog.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	core, err := tradelog.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// GetStocksJSON returns all stocks as JSON.
func (c *Core) GetStocksJSON() (string, error) {
	data, err := c.core.GetStocks()
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// AddStockJSON registers a stock and returns it as JSON.
func (c *Core) AddStockJSON(code, name string) (string, error) {
	data, err := c.core.AddStock(code, name)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// UpdateStockPrice sets the manual mark price of a stock.
func (c *Core) UpdateStockPrice(stockID string, price float64) error {
	_, err := c.core.UpdateStockPrice(stockID, price)
	return err
}

// GetStockHistoryJSON returns the enriched history and summary of a stock.
func (c *Core) GetStockHistoryJSON(stockID string, newestFirst bool) (string, error) {
	data, err := c.core.GetStockHistory(stockID, newestFirst)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// GetTransactionsJSON returns a stock's trades, or every trade when stockID
// is empty.
func (c *Core) GetTransactionsJSON(stockID string) (string, error) {
	data, err := c.core.GetTransactions(stockID)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// AddTransactionJSON records a trade from JSON and returns the stored trade.
func (c *Core) AddTransactionJSON(payloadJSON string) (string, error) {
	var payload transactionPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return "", err
	}
	ts, err := parseTimestamp(payload.Timestamp)
	if err != nil {
		return "", err
	}
	created, err := c.core.AddTransaction(tradelog.AddTransactionRequest{
		StockID:   payload.StockID,
		Type:      ledger.TransactionType(strings.ToLower(strings.TrimSpace(payload.Type))),
		Price:     payload.Price,
		Quantity:  payload.Quantity,
		Timestamp: ts,
	})
	if err != nil {
		return "", err
	}
	return marshalJSON(created)
}

// DeleteTransactionJSON deletes a trade and returns {"deleted":true}.
func (c *Core) DeleteTransactionJSON(id string) (string, error) {
	if err := c.core.DeleteTransaction(id); err != nil {
		return "", err
	}
	return marshalJSON(map[string]bool{"deleted": true})
}

// MaxSellable returns the T+1 sellable quantity at an RFC 3339 instant, or
// now when at is empty.
func (c *Core) MaxSellable(stockID, at, excludeID string) (int64, error) {
	ts, err := parseTimestamp(at)
	if err != nil {
		return 0, err
	}
	return c.core.MaxSellable(stockID, ts, excludeID)
}

// GetDashboardJSON returns the cross-stock overview as JSON.
func (c *Core) GetDashboardJSON() (string, error) {
	data, err := c.core.GetDashboard()
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// ExportDataJSON returns the full backup document.
func (c *Core) ExportDataJSON() (string, error) {
	doc, err := c.core.ExportData()
	if err != nil {
		return "", err
	}
	return marshalJSON(doc)
}

// ImportDataJSON replaces all data with the given backup document.
func (c *Core) ImportDataJSON(docJSON string) error {
	var doc tradelog.DataDocument
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return fmt.Errorf("parse backup: %w", err)
	}
	return c.core.ImportData(&doc)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseTimestamp accepts RFC 3339 or "2006-01-02 15:04" market time.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", value, ledger.MarketLocation())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
	}
	return t, nil
}

type transactionPayload struct {
	StockID   string  `json:"stock_id"`
	Type      string  `json:"type"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Timestamp string  `json:"timestamp"`
}
