package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	transactionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocklog_transaction_total",
			Help: "Total number of recorded transaction changes",
		},
		[]string{"operation", "side"},
	)

	validationRejectTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocklog_validation_reject_total",
			Help: "Total number of transactions rejected by validation",
		},
		[]string{"code"},
	)

	ledgerReplayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stocklog_ledger_replay_duration_seconds",
			Help:    "Duration of a full ledger replay for one stock",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	quoteFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocklog_quote_fetch_total",
			Help: "Total number of quote fetch attempts",
		},
		[]string{"source", "status"},
	)

	aiReviewTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocklog_ai_review_total",
			Help: "Total number of AI trade reviews",
		},
		[]string{"provider", "status"},
	)

	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocklog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocklog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordTransaction counts an add, update or delete of a trade.
func RecordTransaction(operation, side string) {
	transactionTotal.WithLabelValues(operation, side).Inc()
}

// RecordValidationReject counts a trade rejected with the given code.
func RecordValidationReject(code string) {
	validationRejectTotal.WithLabelValues(code).Inc()
}

// ObserveLedgerReplay records how long one ledger replay took.
func ObserveLedgerReplay(d time.Duration) {
	ledgerReplayDuration.Observe(d.Seconds())
}

// RecordQuoteFetch counts a quote attempt against one source.
func RecordQuoteFetch(source, status string) {
	quoteFetchTotal.WithLabelValues(source, status).Inc()
}

// RecordAIReview counts an AI review request.
func RecordAIReview(provider, status string) {
	aiReviewTotal.WithLabelValues(provider, status).Inc()
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
