// Package metrics exposes Prometheus collectors for ranking, delivery, embedding, and the
// HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ranking outcomes used as the "outcome" label of RankingPasses.
const (
	OutcomeSuccess             = "success"
	OutcomeEmptyCatalog        = "empty_catalog"
	OutcomeDimensionMismatch   = "dimension_mismatch"
	OutcomeProviderUnavailable = "provider_unavailable"
	OutcomeRateLimited         = "rate_limited"
	OutcomeError               = "error"
)

var (
	// Ranking
	RankingPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchfeed_ranking_passes_total",
			Help: "Total number of ranking passes by outcome",
		},
		[]string{"outcome"},
	)

	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchfeed_ranking_duration_seconds",
			Help:    "Duration of ranking passes including embedding, scoring, and persistence",
			Buckets: prometheus.DefBuckets,
		},
	)

	RankedItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchfeed_ranked_items",
			Help:    "Number of items stored per successful ranking pass",
			Buckets: []float64{0, 10, 50, 100, 500, 1000, 3000, 10000},
		},
	)

	// Delivery
	ItemsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchfeed_items_delivered_total",
			Help: "Total number of ranked items delivered to sessions",
		},
	)

	StaleReferences = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchfeed_stale_references_total",
			Help: "Total number of delivered ids that no longer resolved in the catalog",
		},
	)

	CatalogLookupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchfeed_catalog_lookup_failures_total",
			Help: "Total number of delivered ids whose catalog lookup failed with an error other than not found",
		},
	)

	EndOfResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchfeed_end_of_results_total",
			Help: "Total number of END messages sent to sessions",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchfeed_delivery_sessions_active",
			Help: "Current number of open delivery sessions",
		},
	)

	SessionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchfeed_delivery_sessions_rejected_total",
			Help: "Total number of delivery sessions rejected at connect",
		},
		[]string{"reason"},
	)

	// Embedding
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchfeed_embedding_requests_total",
			Help: "Total number of embedding requests by provider and result",
		},
		[]string{"provider", "result"},
	)

	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchfeed_embedding_duration_seconds",
			Help:    "Duration of embedding provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	EmbeddingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchfeed_embedding_cache_hits_total",
			Help: "Total number of embedding cache hits",
		},
	)

	EmbeddingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchfeed_embedding_cache_misses_total",
			Help: "Total number of embedding cache misses",
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matchfeed_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchfeed_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchfeed_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Catalog
	CatalogImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchfeed_catalog_imports_total",
			Help: "Total number of catalog imports by result",
		},
		[]string{"result"},
	)

	CatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchfeed_catalog_jobs",
			Help: "Number of jobs in the catalog after the last import",
		},
	)

	// API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchfeed_api_request_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordRankingPass records the outcome and duration of one ranking pass. items is the number
// of ranked ids stored and is only observed on success.
func RecordRankingPass(outcome string, duration time.Duration, items int) {
	RankingPasses.WithLabelValues(outcome).Inc()
	RankingDuration.Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		RankedItems.Observe(float64(items))
	}
}

// RecordDelivery records one delivered item.
func RecordDelivery(stale bool) {
	ItemsDelivered.Inc()
	if stale {
		StaleReferences.Inc()
	}
}

// RecordEmbedding records one provider call.
func RecordEmbedding(provider string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EmbeddingRequests.WithLabelValues(provider, result).Inc()
	EmbeddingDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordCatalogImport records an import attempt and, on success, the resulting catalog size.
func RecordCatalogImport(size int, err error) {
	if err != nil {
		CatalogImports.WithLabelValues("failure").Inc()
		return
	}
	CatalogImports.WithLabelValues("success").Inc()
	CatalogSize.Set(float64(size))
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
