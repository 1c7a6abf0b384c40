// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Upstream metrics
	RPCCallLatency      *prometheus.HistogramVec
	UpstreamCallLatency *prometheus.HistogramVec
	UpstreamErrors      *prometheus.CounterVec

	// Aggregation metrics
	SnapshotComputations prometheus.Counter
	SnapshotDuration     prometheus.Histogram
	DegradedFields       *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	StreamClients       prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSnapshot prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "tokenomics_api"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Upstream metrics
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		UpstreamCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_latency_seconds",
			Help:      "REST upstream call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "operation"}),
		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Total number of upstream failures by source and kind",
		}, []string{"source", "kind"}),

		// Aggregation metrics
		SnapshotComputations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokenomics",
			Name:      "snapshot_computations_total",
			Help:      "Total number of uncached snapshot computations",
		}),
		SnapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tokenomics",
			Name:      "snapshot_duration_seconds",
			Help:      "Snapshot computation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		DegradedFields: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokenomics",
			Name:      "degraded_fields_total",
			Help:      "Total number of snapshot fields replaced by defaults after upstream failure",
		}, []string{"field"}),

		// Cache metrics
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		}, []string{"key"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		}, []string{"key"}),

		// HTTP metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "stream_clients",
			Help:      "Number of connected WebSocket stream clients",
		}),

		// Database metrics
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

		// Health metrics
		LastSuccessfulSnapshot: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_snapshot_timestamp",
			Help:      "Unix timestamp of the last snapshot computation",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordUpstreamCall records a REST upstream call and its failure kind, if any.
// An empty kind means success.
func RecordUpstreamCall(source, operation string, seconds float64, kind string) {
	DefaultMetrics.UpstreamCallLatency.WithLabelValues(source, operation).Observe(seconds)
	if kind != "" {
		DefaultMetrics.UpstreamErrors.WithLabelValues(source, kind).Inc()
	}
}

// RecordUpstreamError counts a classified upstream failure.
func RecordUpstreamError(source, kind string) {
	DefaultMetrics.UpstreamErrors.WithLabelValues(source, kind).Inc()
}

// RecordSnapshot records an uncached snapshot computation.
func RecordSnapshot(duration time.Duration, degraded []string) {
	DefaultMetrics.SnapshotComputations.Inc()
	DefaultMetrics.SnapshotDuration.Observe(duration.Seconds())
	DefaultMetrics.LastSuccessfulSnapshot.SetToCurrentTime()
	for _, field := range degraded {
		DefaultMetrics.DegradedFields.WithLabelValues(field).Inc()
	}
}

// RecordCacheLookup records a cache hit or miss for key.
func RecordCacheLookup(key string, hit bool) {
	if hit {
		DefaultMetrics.CacheHits.WithLabelValues(key).Inc()
		return
	}
	DefaultMetrics.CacheMisses.WithLabelValues(key).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route string, status int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, statusClass(status)).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// StreamClientConnected adjusts the connected stream client gauge by delta.
func StreamClientConnected(delta int) {
	DefaultMetrics.StreamClients.Add(float64(delta))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
