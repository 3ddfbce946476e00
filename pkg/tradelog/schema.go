package tradelog

import (
	"database/sql"
	"fmt"
)

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS stocks (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			current_price REAL NOT NULL DEFAULT 0,
			price_updated_at TEXT,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			stock_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('buy', 'sell')),
			price REAL NOT NULL CHECK(price >= 0),
			quantity INTEGER NOT NULL CHECK(quantity > 0),
			timestamp INTEGER NOT NULL,
			fees REAL NOT NULL DEFAULT 0,
			total_amount REAL NOT NULL DEFAULT 0,
			FOREIGN KEY (stock_id) REFERENCES stocks(id) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}
	if err := exec(tx, "CREATE INDEX IF NOT EXISTS idx_transactions_stock_ts ON transactions(stock_id, timestamp, id)"); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS fee_settings (
			id INTEGER PRIMARY KEY CHECK(id = 1),
			commission_rate REAL NOT NULL,
			min_five_yuan INTEGER NOT NULL,
			stamp_duty_rate REAL NOT NULL,
			transfer_fee_rate REAL NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS operation_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation_type TEXT NOT NULL,
			stock_id TEXT,
			details TEXT,
			old_value REAL,
			new_value REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS ai_reviews (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stock_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			summary TEXT NOT NULL,
			strengths TEXT NOT NULL DEFAULT '[]',
			weaknesses TEXT NOT NULL DEFAULT '[]',
			suggestions TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (stock_id) REFERENCES stocks(id) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}

	hasPriceUpdated, err := tableHasColumn(tx, "stocks", "price_updated_at")
	if err != nil {
		return err
	}
	if !hasPriceUpdated {
		if err := exec(tx, "ALTER TABLE stocks ADD COLUMN price_updated_at TEXT"); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func exec(tx *sql.Tx, query string) error {
	_, err := tx.Exec(query)
	return err
}

func tableHasColumn(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
