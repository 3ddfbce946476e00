package tradelog

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stocklog/pkg/ledger"
)

// setupTestDB creates a temporary database for testing and returns a Core instance.
// The caller should defer cleanup() to remove the temp file.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()
	return setupTestDBWithOptions(t, Options{})
}

// setupTestDBWithOptions is setupTestDB with caller-provided options. DBPath,
// Logger and IDs are filled in when unset.
func setupTestDBWithOptions(t *testing.T, opts Options) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "stocklog-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	if opts.DBPath == "" {
		opts.DBPath = filepath.Join(tmpDir, "test.db")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.IDs == nil {
		opts.IDs = &SequenceProvider{Prefix: "t"}
	}
	core, err := OpenWithOptions(opts)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}
	return core, cleanup
}

// marketTime returns an instant in March 2024, market time.
func marketTime(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, ledger.MarketLocation())
}

// testStock creates a stock and fails the test on error.
func testStock(t *testing.T, core *Core, code, name string) *Stock {
	t.Helper()
	stock, err := core.AddStock(code, name)
	if err != nil {
		t.Fatalf("failed to create test stock: %v", err)
	}
	return stock
}

// testBuy records a buy and fails the test on error.
func testBuy(t *testing.T, core *Core, stockID string, ts time.Time, price float64, qty int64) *ledger.Transaction {
	t.Helper()
	tx, err := core.AddTransaction(AddTransactionRequest{
		StockID: stockID, Type: ledger.Buy, Price: price, Quantity: qty, Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("failed to create test buy: %v", err)
	}
	return tx
}

// testSell records a sell and fails the test on error.
func testSell(t *testing.T, core *Core, stockID string, ts time.Time, price float64, qty int64) *ledger.Transaction {
	t.Helper()
	tx, err := core.AddTransaction(AddTransactionRequest{
		StockID: stockID, Type: ledger.Sell, Price: price, Quantity: qty, Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("failed to create test sell: %v", err)
	}
	return tx
}

// useZeroFees stores all-zero fee settings so amounts stay round.
func useZeroFees(t *testing.T, core *Core) {
	t.Helper()
	if _, err := core.SetFeeSettings(ledger.FeeSettings{}); err != nil {
		t.Fatalf("failed to set zero fees: %v", err)
	}
}

// floatEquals checks if two floats are approximately equal.
func floatEquals(a, b, epsilon float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

// assertFloatEquals fails the test if the floats are not approximately equal.
func assertFloatEquals(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if !floatEquals(got, want, 0.001) {
		t.Errorf("%s: got %.4f, want %.4f", msg, got, want)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertErrorCode fails the test unless err carries the given code.
func assertErrorCode(t *testing.T, err error, code ErrorCode, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected %s error but got nil", msg, code)
	}
	if !IsErrorCode(err, code) {
		var e *Error
		if errors.As(err, &e) {
			t.Fatalf("%s: expected %s, got %s (%v)", msg, code, e.Code, err)
		}
		t.Fatalf("%s: expected %s, got unclassified error %v", msg, code, err)
	}
}

// assertContains checks if the string contains the substring.
func assertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return
		}
	}
	t.Errorf("%s: string %q does not contain %q", msg, s, substr)
}
