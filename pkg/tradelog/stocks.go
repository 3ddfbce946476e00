package tradelog

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"
)

var reStockCode = regexp.MustCompile(`^(SH|SZ|BJ)?\d{6}$`)

// normalizeStockCode upper-cases and trims a code such as "sh600519".
func normalizeStockCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AddStock registers a new stock and returns it.
func (c *Core) AddStock(code, name string) (*Stock, error) {
	code = normalizeStockCode(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, NewError(ErrCodeInvalidInput, "stock code required")
	}
	if !reStockCode.MatchString(code) {
		return nil, NewError(ErrCodeInvalidInput, "stock code must be six digits, optionally prefixed with SH, SZ or BJ")
	}
	if name == "" {
		return nil, NewError(ErrCodeInvalidInput, "stock name required")
	}

	stock := Stock{
		ID:        c.ids.NewID(),
		Code:      code,
		Name:      name,
		CreatedAt: c.now().UTC().Truncate(time.Millisecond),
	}
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow("SELECT COUNT(*) FROM stocks WHERE code = ?", code).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			return NewError(ErrCodeDuplicate, "stock code already exists: "+code)
		}
		if err := insertStock(tx, stock); err != nil {
			return err
		}
		_, err := addOperationLog(tx, OperationLog{
			Operation: OpAddStock,
			StockID:   stringPtr(stock.ID),
			Details:   detailsf("%s %s", code, name),
		})
		return err
	})
	if err != nil {
		return nil, dbError("add stock", err)
	}
	c.logger.Info("stock added", "id", stock.ID, "code", code)
	return &stock, nil
}

func insertStock(tx execer, s Stock) error {
	_, err := tx.Exec(
		"INSERT INTO stocks (id, code, name, current_price, price_updated_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		s.ID, s.Code, s.Name, s.CurrentPrice, s.PriceUpdated, s.CreatedAt.UnixMilli(),
	)
	return err
}

const stockColumns = "id, code, name, current_price, price_updated_at, created_at"

func scanStock(scan func(dest ...any) error) (Stock, error) {
	var s Stock
	var priceUpdated sql.NullString
	var createdAt int64
	if err := scan(&s.ID, &s.Code, &s.Name, &s.CurrentPrice, &priceUpdated, &createdAt); err != nil {
		return Stock{}, err
	}
	if priceUpdated.Valid {
		s.PriceUpdated = &priceUpdated.String
	}
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	return s, nil
}

// GetStocks returns all stocks in creation order.
func (c *Core) GetStocks() ([]Stock, error) {
	return listStocks(c.db)
}

func listStocks(q queryer) ([]Stock, error) {
	rows, err := q.Query("SELECT " + stockColumns + " FROM stocks ORDER BY created_at, id")
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query stocks", err)
	}
	defer rows.Close()

	stocks := []Stock{}
	for rows.Next() {
		s, err := scanStock(rows.Scan)
		if err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan stock", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// GetStock returns one stock by id.
func (c *Core) GetStock(id string) (*Stock, error) {
	return getStock(c.db, id)
}

func getStock(q queryer, id string) (*Stock, error) {
	row := q.QueryRow("SELECT "+stockColumns+" FROM stocks WHERE id = ?", id)
	s, err := scanStock(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewError(ErrCodeNotFound, "stock not found: "+id)
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query stock", err)
	}
	return &s, nil
}

// UpdateStockPrice sets the manual mark price of a stock.
func (c *Core) UpdateStockPrice(id string, price float64) (*Stock, error) {
	if price < 0 {
		return nil, NewError(ErrCodeInvalidPrice, "price must not be negative")
	}
	return c.setStockPrice(id, price, OpUpdatePrice, "manual")
}

func (c *Core) setStockPrice(id string, price float64, op, source string) (*Stock, error) {
	var updated *Stock
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		stock, err := getStock(tx, id)
		if err != nil {
			return err
		}
		stamp := c.now().UTC().Format(time.RFC3339)
		if _, err := tx.Exec("UPDATE stocks SET current_price = ?, price_updated_at = ? WHERE id = ?", price, stamp, id); err != nil {
			return err
		}
		if _, err := addOperationLog(tx, OperationLog{
			Operation: op,
			StockID:   stringPtr(id),
			Details:   detailsf("%s price via %s", stock.Code, source),
			OldValue:  floatPtr(stock.CurrentPrice),
			NewValue:  floatPtr(price),
		}); err != nil {
			return err
		}
		stock.CurrentPrice = price
		stock.PriceUpdated = &stamp
		updated = stock
		return nil
	})
	if err != nil {
		return nil, dbError("update stock price", err)
	}
	return updated, nil
}

// RefreshStockPrice fetches the latest quote for a stock and stores it as
// the mark price.
func (c *Core) RefreshStockPrice(ctx context.Context, id string) (*Stock, *QuoteResult, error) {
	stock, err := c.GetStock(id)
	if err != nil {
		return nil, nil, err
	}
	quote, err := c.quotes.fetch(ctx, stock.Code)
	if err != nil {
		return nil, nil, WrapError(ErrCodeUpstream, "fetch quote for "+stock.Code, err)
	}
	updated, err := c.setStockPrice(id, quote.Price, OpRefreshPrice, quote.Source)
	if err != nil {
		return nil, nil, err
	}
	return updated, quote, nil
}

// FetchQuote fetches the latest quote for a code without storing it.
func (c *Core) FetchQuote(ctx context.Context, code string) (*QuoteResult, error) {
	code = normalizeStockCode(code)
	if !reStockCode.MatchString(code) {
		return nil, NewError(ErrCodeInvalidInput, "invalid stock code: "+code)
	}
	quote, err := c.quotes.fetch(ctx, code)
	if err != nil {
		return nil, WrapError(ErrCodeUpstream, "fetch quote for "+code, err)
	}
	return quote, nil
}

// DeleteStock removes a stock together with its transactions and reviews.
func (c *Core) DeleteStock(id string) error {
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		stock, err := getStock(tx, id)
		if err != nil {
			return err
		}
		res, err := tx.Exec("DELETE FROM transactions WHERE stock_id = ?", id)
		if err != nil {
			return err
		}
		removed, _ := res.RowsAffected()
		if _, err := tx.Exec("DELETE FROM ai_reviews WHERE stock_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM stocks WHERE id = ?", id); err != nil {
			return err
		}
		_, err = addOperationLog(tx, OperationLog{
			Operation: OpDeleteStock,
			StockID:   stringPtr(id),
			Details:   detailsf("%s %s with %d transactions", stock.Code, stock.Name, removed),
		})
		return err
	})
	if err != nil {
		return dbError("delete stock", err)
	}
	c.logger.Info("stock deleted", "id", id)
	return nil
}
