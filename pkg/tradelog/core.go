package tradelog

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Options controls Core initialization.
type Options struct {
	DBPath string
	Logger *slog.Logger
	// IDs issues identifiers for new rows. Defaults to UUIDProvider.
	IDs IDProvider
	// Now is the clock used for export stamps and default trade times.
	Now func() time.Time

	QuoteCacheTTL      time.Duration
	QuoteTimeout       time.Duration
	QuoteFailThreshold int
	QuoteFailWindow    time.Duration
	QuoteCooldown      time.Duration
	// QuoteBaseURLs overrides the quote endpoints keyed by source name
	// ("tencent", "sina").
	QuoteBaseURLs map[string]string
}

// Core provides access to the trade log and its derived views.
type Core struct {
	db     *sql.DB
	logger *slog.Logger
	ids    IDProvider
	now    func() time.Time
	quotes *quoteFetcher
	dbPath string
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logger.Warn("pragma foreign_keys failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = UUIDProvider{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	qf := newQuoteFetcher(quoteFetcherOptions{
		Logger:        logger,
		CacheTTL:      defaultDuration(opts.QuoteCacheTTL, 30*time.Second),
		Timeout:       defaultDuration(opts.QuoteTimeout, 10*time.Second),
		FailThreshold: defaultInt(opts.QuoteFailThreshold, 3),
		FailWindow:    defaultDuration(opts.QuoteFailWindow, 60*time.Second),
		Cooldown:      defaultDuration(opts.QuoteCooldown, 120*time.Second),
		BaseURLs:      opts.QuoteBaseURLs,
		Now:           now,
	})

	return &Core{
		db:     db,
		logger: logger,
		ids:    ids,
		now:    now,
		quotes: qf,
		dbPath: cleanPath,
	}, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// Logger returns the logger the core writes to.
func (c *Core) Logger() *slog.Logger {
	return c.logger
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
