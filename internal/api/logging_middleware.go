package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stocklog/pkg/tradelog"
)

// outcomeWriter remembers the error envelope written for a request so the
// access log can carry its business error code.
type outcomeWriter struct {
	middleware.WrapResponseWriter
	outcome *ErrorResponse
}

func newOutcomeWriter(w http.ResponseWriter, r *http.Request) *outcomeWriter {
	return &outcomeWriter{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}
}

func (w *outcomeWriter) recordOutcome(resp ErrorResponse) {
	w.outcome = &resp
}

func (w *outcomeWriter) Flush() {
	if flusher, ok := w.WrapResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// ledgerRefs returns the stock and transaction the request addressed.
func ledgerRefs(r *http.Request) []any {
	var refs []any
	if id := chi.URLParam(r, "id"); id != "" {
		switch route := routePattern(r); {
		case strings.HasPrefix(route, "/api/stocks/"):
			refs = append(refs, "stock_id", id)
		case strings.HasPrefix(route, "/api/transactions/"):
			refs = append(refs, "transaction_id", id)
		}
	}
	if id := r.URL.Query().Get("stock_id"); id != "" {
		refs = append(refs, "stock_id", id)
	}
	if code := chi.URLParam(r, "code"); code != "" {
		refs = append(refs, "stock_code", code)
	}
	return refs
}

func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newOutcomeWriter(w, r)

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields := []any{
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"route", routePattern(r),
				"path", r.URL.Path,
				"status", status,
				"bytes", wrapped.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			fields = append(fields, ledgerRefs(r)...)

			if out := wrapped.outcome; out != nil {
				fields = append(fields, "error_code", out.ErrorCode, "error_message", out.Message)
				if out.MaxSellable != nil {
					fields = append(fields, "max_sellable", *out.MaxSellable)
				}
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("ledger request failed", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("ledger request rejected", fields...)
			default:
				logger.Info("ledger request completed", fields...)
			}
		})
	}
}

// recoveryLoggingMiddleware turns a handler panic into an INTERNAL_ERROR
// envelope unless a response has already started.
func recoveryLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				fields := []any{
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"route", routePattern(r),
					"path", r.URL.Path,
					"panic", fmt.Sprint(recovered),
					"stack", string(debug.Stack()),
				}
				logger.Error("ledger handler panicked", append(fields, ledgerRefs(r)...)...)

				if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
					return
				}
				writeErrorResponse(w, r, tradelog.NewError(tradelog.ErrCodeInternal, "internal server error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
