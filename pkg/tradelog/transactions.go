package tradelog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stocklog/internal/metrics"
	"stocklog/pkg/ledger"
)

const transactionColumns = "id, stock_id, type, price, quantity, timestamp, fees, total_amount"

func scanTransaction(scan func(dest ...any) error) (ledger.Transaction, error) {
	var t ledger.Transaction
	var side string
	var ts int64
	if err := scan(&t.ID, &t.StockID, &side, &t.Price, &t.Quantity, &ts, &t.Fees, &t.TotalAmount); err != nil {
		return ledger.Transaction{}, err
	}
	t.Type = ledger.TransactionType(side)
	t.Timestamp = time.UnixMilli(ts).In(ledger.MarketLocation())
	return t, nil
}

func loadTransactions(q queryer, stockID string) ([]ledger.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions"
	var args []any
	if stockID != "" {
		query += " WHERE stock_id = ?"
		args = append(args, stockID)
	}
	query += " ORDER BY timestamp, id"

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query transactions", err)
	}
	defer rows.Close()

	txs := []ledger.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan transaction", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func getTransaction(q queryer, id string) (*ledger.Transaction, error) {
	row := q.QueryRow("SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewError(ErrCodeNotFound, "transaction not found: "+id)
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query transaction", err)
	}
	return &t, nil
}

func insertTransaction(tx execer, t ledger.Transaction) error {
	_, err := tx.Exec(`
		INSERT INTO transactions (id, stock_id, type, price, quantity, timestamp, fees, total_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.StockID, string(t.Type), t.Price, t.Quantity, t.Timestamp.UnixMilli(), t.Fees, t.TotalAmount)
	return err
}

// totalAmount is the cash leg of a trade: paid for buys, received for sells.
func totalAmount(t ledger.TransactionType, price float64, quantity int64, fees float64) float64 {
	gross := price * float64(quantity)
	if t == ledger.Sell {
		return ledger.Round2(gross - fees)
	}
	return ledger.Round2(gross + fees)
}

// buildTransaction validates the request and prices it against the current
// fee settings. existing is the stock's log; the candidate's own id is
// excluded from the T+1 check.
func (c *Core) buildTransaction(q queryer, id string, req AddTransactionRequest, existing []ledger.Transaction) (ledger.Transaction, error) {
	if !req.Type.Valid() {
		return ledger.Transaction{}, NewError(ErrCodeInvalidInput, fmt.Sprintf("invalid transaction type: %q", req.Type))
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	candidate := ledger.Transaction{
		ID:        id,
		StockID:   req.StockID,
		Type:      req.Type,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Timestamp: ts.Truncate(time.Millisecond).In(ledger.MarketLocation()),
	}

	if res := ledger.Validate(candidate, existing); !res.Valid {
		metrics.RecordValidationReject(string(res.Code))
		c.logger.Info("transaction rejected", "stock_id", req.StockID, "type", req.Type, "code", res.Code, "message", res.Message)
		return ledger.Transaction{}, validationError(res)
	}

	settings, err := getFeeSettings(q)
	if err != nil {
		return ledger.Transaction{}, err
	}
	candidate.Fees = ledger.CalculateFees(candidate.Type, candidate.Price, candidate.Quantity, settings)
	candidate.TotalAmount = totalAmount(candidate.Type, candidate.Price, candidate.Quantity, candidate.Fees)
	return candidate, nil
}

// AddTransaction validates and records a trade. Fees are computed from the
// current fee settings.
func (c *Core) AddTransaction(req AddTransactionRequest) (*ledger.Transaction, error) {
	if req.StockID == "" {
		return nil, NewError(ErrCodeInvalidInput, "stock_id required")
	}
	var created ledger.Transaction
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := getStock(tx, req.StockID); err != nil {
			return err
		}
		existing, err := loadTransactions(tx, req.StockID)
		if err != nil {
			return err
		}
		created, err = c.buildTransaction(tx, c.ids.NewID(), req, existing)
		if err != nil {
			return err
		}
		if err := insertTransaction(tx, created); err != nil {
			return err
		}
		_, err = addOperationLog(tx, OperationLog{
			Operation: OpAddTransaction,
			StockID:   stringPtr(created.StockID),
			Details:   detailsf("%s %d @ %.3f fees %.2f", created.Type, created.Quantity, created.Price, created.Fees),
			NewValue:  floatPtr(created.TotalAmount),
		})
		return err
	})
	if err != nil {
		return nil, dbError("add transaction", err)
	}
	metrics.RecordTransaction("add", string(created.Type))
	c.logger.Info("transaction added", "id", created.ID, "stock_id", created.StockID, "type", created.Type, "quantity", created.Quantity)
	return &created, nil
}

// UpdateTransaction replaces a recorded trade. The edited trade is validated
// against the rest of the stock's log and its fees are recomputed.
func (c *Core) UpdateTransaction(id string, req AddTransactionRequest) (*ledger.Transaction, error) {
	var updated ledger.Transaction
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		current, err := getTransaction(tx, id)
		if err != nil {
			return err
		}
		if req.StockID == "" {
			req.StockID = current.StockID
		}
		if req.StockID != current.StockID {
			return NewError(ErrCodeInvalidInput, "a transaction cannot be moved to another stock")
		}
		existing, err := loadTransactions(tx, current.StockID)
		if err != nil {
			return err
		}
		updated, err = c.buildTransaction(tx, id, req, existing)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			UPDATE transactions
			SET type = ?, price = ?, quantity = ?, timestamp = ?, fees = ?, total_amount = ?
			WHERE id = ?
		`, string(updated.Type), updated.Price, updated.Quantity, updated.Timestamp.UnixMilli(), updated.Fees, updated.TotalAmount, id); err != nil {
			return err
		}
		_, err = addOperationLog(tx, OperationLog{
			Operation: OpUpdateTransaction,
			StockID:   stringPtr(updated.StockID),
			Details:   detailsf("%s %s %d @ %.3f", id, updated.Type, updated.Quantity, updated.Price),
			OldValue:  floatPtr(current.TotalAmount),
			NewValue:  floatPtr(updated.TotalAmount),
		})
		return err
	})
	if err != nil {
		return nil, dbError("update transaction", err)
	}
	metrics.RecordTransaction("update", string(updated.Type))
	return &updated, nil
}

// DeleteTransaction removes a recorded trade.
func (c *Core) DeleteTransaction(id string) error {
	var removed *ledger.Transaction
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		current, err := getTransaction(tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM transactions WHERE id = ?", id); err != nil {
			return err
		}
		removed = current
		_, err = addOperationLog(tx, OperationLog{
			Operation: OpDeleteTransaction,
			StockID:   stringPtr(current.StockID),
			Details:   detailsf("%s %s %d @ %.3f", id, current.Type, current.Quantity, current.Price),
			OldValue:  floatPtr(current.TotalAmount),
		})
		return err
	})
	if err != nil {
		return dbError("delete transaction", err)
	}
	metrics.RecordTransaction("delete", string(removed.Type))
	return nil
}

// GetTransaction returns one trade by id.
func (c *Core) GetTransaction(id string) (*ledger.Transaction, error) {
	return getTransaction(c.db, id)
}

// GetTransactions returns a stock's trades in chronological order. An empty
// stockID returns every trade.
func (c *Core) GetTransactions(stockID string) ([]ledger.Transaction, error) {
	if stockID != "" {
		if _, err := c.GetStock(stockID); err != nil {
			return nil, err
		}
	}
	return loadTransactions(c.db, stockID)
}

// MaxSellable returns the T+1 sellable quantity of a stock at the given
// instant, ignoring the trade with excludeID.
func (c *Core) MaxSellable(stockID string, at time.Time, excludeID string) (int64, error) {
	txs, err := c.GetTransactions(stockID)
	if err != nil {
		return 0, err
	}
	if at.IsZero() {
		at = c.now()
	}
	return ledger.MaxSellable(at, txs, excludeID), nil
}
