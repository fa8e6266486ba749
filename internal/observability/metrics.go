// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Catalog metrics
	AggregationRuns     *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	EnrichmentOutcomes  *prometheus.CounterVec
	StaleResults        prometheus.Counter

	// Chain metrics
	ChainQueryLatency *prometheus.HistogramVec
	ChainQueryErrors  *prometheus.CounterVec

	// Checkout metrics
	OrdersCreated  *prometheus.CounterVec
	CheckoutEvents *prometheus.CounterVec

	// Session metrics
	SessionsActive prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered against reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "storefront"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AggregationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "aggregation_runs_total",
			Help:      "Total number of collection aggregation runs by outcome",
		}, []string{"outcome"}),
		AggregationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "aggregation_duration_seconds",
			Help:      "Collection aggregation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		EnrichmentOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "enrichment_outcomes_total",
			Help:      "Per-collection enrichment outcomes (full, partial, degraded)",
		}, []string{"outcome"}),
		StaleResults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "stale_results_discarded_total",
			Help:      "Aggregation results discarded because a newer run was issued",
		}),

		ChainQueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "query_latency_seconds",
			Help:      "Smart contract query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		ChainQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "query_errors_total",
			Help:      "Total number of failed smart contract queries",
		}, []string{"query"}),

		OrdersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "orders_created_total",
			Help:      "Total number of checkout orders by creation status",
		}, []string{"status"}),
		CheckoutEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "events_total",
			Help:      "Total number of checkout provider events by kind",
		}, []string{"kind"}),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of connected wallet sessions held by this process",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordAggregation records one aggregation run.
func RecordAggregation(outcome string, seconds float64) {
	DefaultMetrics.AggregationRuns.WithLabelValues(outcome).Inc()
	DefaultMetrics.AggregationDuration.Observe(seconds)
}

// RecordEnrichment records the outcome of enriching one collection.
func RecordEnrichment(outcome string) {
	DefaultMetrics.EnrichmentOutcomes.WithLabelValues(outcome).Inc()
}

// RecordStaleResult counts a discarded out-of-date aggregation result.
func RecordStaleResult() {
	DefaultMetrics.StaleResults.Inc()
}

// RecordChainQuery records smart query latency and failure.
func RecordChainQuery(query string, seconds float64, err error) {
	DefaultMetrics.ChainQueryLatency.WithLabelValues(query).Observe(seconds)
	if err != nil {
		DefaultMetrics.ChainQueryErrors.WithLabelValues(query).Inc()
	}
}

// RecordOrderCreated counts an order creation attempt.
func RecordOrderCreated(status string) {
	DefaultMetrics.OrdersCreated.WithLabelValues(status).Inc()
}

// RecordCheckoutEvent counts a provider event.
func RecordCheckoutEvent(kind string) {
	DefaultMetrics.CheckoutEvents.WithLabelValues(kind).Inc()
}

// AddActiveSessions moves the active sessions gauge by delta.
func AddActiveSessions(delta int) {
	DefaultMetrics.SessionsActive.Add(float64(delta))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
