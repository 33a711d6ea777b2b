package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Domain collectors. HTTP traffic metrics live in the middleware package.
var (
	// PaymentReconciliations counts gateway callbacks by reconciliation outcome
	// (success, failed, amount_mismatch, duplicate, invalid_signature,
	// unknown_reference, malformed).
	PaymentReconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconciliations_total",
			Help: "Gateway callbacks processed, by outcome.",
		},
		[]string{"outcome"},
	)

	// EmbeddingRequests counts Embed calls by final result
	// (available, unavailable, rejected).
	EmbeddingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_requests_total",
			Help: "Embedding provider calls, by final result.",
		},
		[]string{"result"},
	)

	// EmbeddingAttempts counts individual HTTP attempts by status class
	// (2xx, 429, 4xx, 5xx, error, timeout).
	EmbeddingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_attempts_total",
			Help: "Embedding provider HTTP attempts, by status class.",
		},
		[]string{"status"},
	)

	// EmbeddingBreakerState is 0 closed, 1 half-open, 2 open.
	EmbeddingBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "embedding_breaker_state",
			Help: "Embedding provider circuit breaker state (0 closed, 1 half-open, 2 open).",
		},
	)

	// EmbeddingBackfillItems counts backfilled books by result
	// (stored, unavailable, error).
	EmbeddingBackfillItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_backfill_items_total",
			Help: "Books processed by embedding backfill, by result.",
		},
		[]string{"result"},
	)

	// QueryCacheRequests counts query-vector cache lookups (hit, miss, error).
	QueryCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_requests_total",
			Help: "Query embedding cache lookups, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		PaymentReconciliations,
		EmbeddingRequests,
		EmbeddingAttempts,
		EmbeddingBreakerState,
		EmbeddingBackfillItems,
		QueryCacheRequests,
	)
}
