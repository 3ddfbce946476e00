package tradelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stocklog/pkg/ledger"
)

// ExportData returns every stock, trade and the fee settings as one document.
func (c *Core) ExportData() (*DataDocument, error) {
	stocks, err := c.GetStocks()
	if err != nil {
		return nil, err
	}
	txs, err := loadTransactions(c.db, "")
	if err != nil {
		return nil, err
	}
	settings, err := c.GetFeeSettings()
	if err != nil {
		return nil, err
	}
	return &DataDocument{
		Version:      DataDocumentVersion,
		ExportedAt:   c.now().UTC().Truncate(time.Second),
		Stocks:       stocks,
		Transactions: txs,
		Settings:     settings,
	}, nil
}

func validateDocument(doc *DataDocument) error {
	if doc == nil {
		return NewError(ErrCodeInvalidInput, "document required")
	}
	if doc.Version > DataDocumentVersion {
		return NewError(ErrCodeUnsupported, fmt.Sprintf("unsupported document version %d", doc.Version))
	}

	stockIDs := make(map[string]struct{}, len(doc.Stocks))
	codes := make(map[string]struct{}, len(doc.Stocks))
	for i, s := range doc.Stocks {
		if s.ID == "" {
			return NewError(ErrCodeInvalidInput, fmt.Sprintf("stock %d has no id", i))
		}
		if _, dup := stockIDs[s.ID]; dup {
			return NewError(ErrCodeDuplicate, "duplicate stock id: "+s.ID)
		}
		code := normalizeStockCode(s.Code)
		if _, dup := codes[code]; dup {
			return NewError(ErrCodeDuplicate, "duplicate stock code: "+code)
		}
		if s.CurrentPrice < 0 {
			return NewError(ErrCodeInvalidPrice, "negative price for stock "+s.ID)
		}
		stockIDs[s.ID] = struct{}{}
		codes[code] = struct{}{}
	}

	txIDs := make(map[string]struct{}, len(doc.Transactions))
	for _, t := range doc.Transactions {
		if t.ID == "" {
			return NewError(ErrCodeInvalidInput, "transaction without id")
		}
		if _, dup := txIDs[t.ID]; dup {
			return NewError(ErrCodeDuplicate, "duplicate transaction id: "+t.ID)
		}
		txIDs[t.ID] = struct{}{}
		if _, ok := stockIDs[t.StockID]; !ok {
			return NewError(ErrCodeInvalidInput, fmt.Sprintf("transaction %s references unknown stock %s", t.ID, t.StockID))
		}
		if !t.Type.Valid() {
			return NewError(ErrCodeInvalidInput, fmt.Sprintf("transaction %s has invalid type %q", t.ID, t.Type))
		}
		if t.Price < 0 {
			return NewError(ErrCodeInvalidPrice, "negative price in transaction "+t.ID)
		}
		if !ledger.ValidLotSize(t.Quantity) {
			return NewError(ErrCodeInvalidQuantity, fmt.Sprintf("transaction %s quantity %d is not a multiple of %d", t.ID, t.Quantity, ledger.LotSize))
		}
		if t.Timestamp.IsZero() {
			return NewError(ErrCodeInvalidInput, "transaction without timestamp: "+t.ID)
		}
	}
	return validateFeeSettings(doc.Settings)
}

// ImportData replaces all stocks, trades and fee settings with the
// document's content in one transaction. Trades keep their recorded fees.
// A document without settings leaves the current ones in place.
func (c *Core) ImportData(doc *DataDocument) error {
	if err := validateDocument(doc); err != nil {
		return err
	}
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM ai_reviews",
			"DELETE FROM transactions",
			"DELETE FROM stocks",
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		for _, s := range doc.Stocks {
			s.Code = normalizeStockCode(s.Code)
			if s.CreatedAt.IsZero() {
				s.CreatedAt = c.now().UTC()
			}
			if err := insertStock(tx, s); err != nil {
				return err
			}
		}
		for _, t := range doc.Transactions {
			if err := insertTransaction(tx, t); err != nil {
				return err
			}
		}
		if doc.Settings != (ledger.FeeSettings{}) {
			if err := saveFeeSettings(tx, doc.Settings); err != nil {
				return err
			}
		}
		_, err := addOperationLog(tx, OperationLog{
			Operation: OpImportData,
			Details:   detailsf("%d stocks, %d transactions", len(doc.Stocks), len(doc.Transactions)),
		})
		return err
	})
	if err != nil {
		return dbError("import data", err)
	}
	c.logger.Info("data imported", "stocks", len(doc.Stocks), "transactions", len(doc.Transactions))
	return nil
}
