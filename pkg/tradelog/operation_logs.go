package tradelog

import (
	"database/sql"
	"fmt"
)

// Operation types recorded in the operation log.
const (
	OpAddStock          = "ADD_STOCK"
	OpDeleteStock       = "DELETE_STOCK"
	OpUpdatePrice       = "UPDATE_PRICE"
	OpRefreshPrice      = "REFRESH_PRICE"
	OpAddTransaction    = "ADD_TRANSACTION"
	OpUpdateTransaction = "UPDATE_TRANSACTION"
	OpDeleteTransaction = "DELETE_TRANSACTION"
	OpUpdateFees        = "UPDATE_FEE_SETTINGS"
	OpImportData        = "IMPORT_DATA"
	OpAIReview          = "AI_REVIEW"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func addOperationLog(db execer, log OperationLog) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO operation_logs (operation_type, stock_id, details, old_value, new_value)
		VALUES (?, ?, ?, ?, ?)
	`, log.Operation, log.StockID, log.Details, log.OldValue, log.NewValue)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// AddOperationLog adds a new operation log entry.
func (c *Core) AddOperationLog(log OperationLog) (int64, error) {
	id, err := addOperationLog(c.db, log)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "add operation log", err)
	}
	return id, nil
}

// GetOperationLogs returns recent operation logs, newest first.
func (c *Core) GetOperationLogs(limit, offset int) ([]OperationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.db.Query(
		"SELECT id, operation_type, stock_id, details, old_value, new_value, created_at FROM operation_logs ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query operation logs", err)
	}
	defer rows.Close()

	logs := []OperationLog{}
	for rows.Next() {
		var log OperationLog
		var stockID, details, createdAt sql.NullString
		var oldValue, newValue sql.NullFloat64
		if err := rows.Scan(&log.ID, &log.Operation, &stockID, &details, &oldValue, &newValue, &createdAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan operation log", err)
		}
		if stockID.Valid {
			log.StockID = &stockID.String
		}
		if details.Valid {
			log.Details = &details.String
		}
		if oldValue.Valid {
			log.OldValue = &oldValue.Float64
		}
		if newValue.Valid {
			log.NewValue = &newValue.Float64
		}
		if createdAt.Valid {
			log.CreatedAt = &createdAt.String
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func stringPtr(v string) *string {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func detailsf(format string, args ...any) *string {
	return stringPtr(fmt.Sprintf(format, args...))
}
