package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"stocklog/internal/metrics"
	"stocklog/pkg/tradelog"
)

// Router serves the HTTP API over the active ledger database. The active
// database can be switched at runtime through /api/storage/switch.
type Router struct {
	http.Handler
	h *handler
}

// NewRouter builds the HTTP API router.
func NewRouter(core *tradelog.Core, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{core: core, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/api/health", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.coreLockMiddleware)

		// Stocks
		r.Get("/api/stocks", h.getStocks)
		r.Post("/api/stocks", h.addStock)
		r.Get("/api/stocks/{id}", h.getStock)
		r.Delete("/api/stocks/{id}", h.deleteStock)
		r.Put("/api/stocks/{id}/price", h.updateStockPrice)
		r.Post("/api/stocks/{id}/price/refresh", h.refreshStockPrice)
		r.Get("/api/stocks/{id}/history", h.getStockHistory)
		r.Get("/api/stocks/{id}/max-sellable", h.getMaxSellable)
		r.Get("/api/stocks/{id}/export.xlsx", h.exportStockExcel)
		r.Get("/api/stocks/{id}/reviews", h.getReviews)
		r.Post("/api/stocks/{id}/reviews", h.createReview)

		// Quotes
		r.Get("/api/quotes/{code}", h.getQuote)

		// Transactions
		r.Get("/api/transactions", h.getTransactions)
		r.Post("/api/transactions", h.addTransaction)
		r.Put("/api/transactions/{id}", h.updateTransaction)
		r.Delete("/api/transactions/{id}", h.deleteTransaction)

		// Fees
		r.Post("/api/fees/preview", h.previewFees)
		r.Get("/api/settings/fees", h.getFeeSettings)
		r.Put("/api/settings/fees", h.setFeeSettings)

		r.Get("/api/dashboard", h.getDashboard)

		// Backup
		r.Get("/api/backup", h.exportBackup)
		r.Post("/api/backup/import", h.importBackup)

		r.Get("/api/operation-logs", h.getOperationLogs)

		r.Get("/api/storage", h.getStorageInfo)
	})
	// Takes the write lock itself.
	r.Post("/api/storage/switch", h.switchStorage)

	return &Router{Handler: r, h: h}
}

// WithCoreOpener sets how a storage switch opens the new database. The
// default opens it with the router's logger and default options.
func (rt *Router) WithCoreOpener(open func(dbPath string) (*tradelog.Core, error)) *Router {
	rt.h.openCore = open
	return rt
}

// Core returns the active core.
func (rt *Router) Core() *tradelog.Core {
	rt.h.coreMu.RLock()
	defer rt.h.coreMu.RUnlock()
	return rt.h.core
}

// Close closes the active core.
func (rt *Router) Close() error {
	rt.h.coreMu.Lock()
	defer rt.h.coreMu.Unlock()
	if rt.h.core == nil {
		return nil
	}
	err := rt.h.core.Close()
	rt.h.core = nil
	return err
}

type handler struct {
	coreMu sync.RWMutex
	core   *tradelog.Core
	logger *slog.Logger

	openCore func(dbPath string) (*tradelog.Core, error)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
