package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard's Prometheus collectors. Each instance owns its
// registry so tests and multiple servers do not collide.
//
// Usage:
//
//	m := metrics.New()
//	defer m.ObserveBackend("fitnessAnalytics", "ok", time.Since(start))
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequestDuration measures request latency.
	// Labels: method, route, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// BackendRequestDuration measures backend GraphQL latency including retries.
	// Labels: operation, outcome (ok|external_api|rate_limit|timeout|...)
	BackendRequestDuration *prometheus.HistogramVec

	// QueryCacheResults counts query cache lookups.
	// Labels: query, outcome (hit|miss|shared|persisted)
	QueryCacheResults *prometheus.CounterVec

	// ChartRenders counts rendered chart partials by state.
	// Labels: chart, state (hidden|idle|loading|error|empty|ready)
	ChartRenders *prometheus.CounterVec

	// Exports counts image exports.
	// Labels: capturer, status (success|error|busy)
	Exports *prometheus.CounterVec

	// ExportBytes tracks the size of exported images.
	ExportBytes prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitdash_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route", "status_code"},
		),
		BackendRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitdash_backend_request_duration_seconds",
				Help:    "Duration of backend queries in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"operation", "outcome"},
		),
		QueryCacheResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitdash_query_cache_results_total",
				Help: "Query cache lookups by outcome",
			},
			[]string{"query", "outcome"},
		),
		ChartRenders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitdash_chart_renders_total",
				Help: "Chart partials rendered by state",
			},
			[]string{"chart", "state"},
		),
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitdash_exports_total",
				Help: "Dashboard image exports by status",
			},
			[]string{"capturer", "status"},
		),
		ExportBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fitdash_export_bytes",
				Help:    "Size of exported dashboard images",
				Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBackend(operation, outcome string, elapsed time.Duration) {
	m.BackendRequestDuration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheResult(query, outcome string) {
	m.QueryCacheResults.WithLabelValues(query, outcome).Inc()
}

func (m *Metrics) ChartRendered(chart, state string) {
	m.ChartRenders.WithLabelValues(chart, state).Inc()
}

func (m *Metrics) ExportFinished(capturer, status string, size int) {
	m.Exports.WithLabelValues(capturer, status).Inc()
	if size > 0 {
		m.ExportBytes.Observe(float64(size))
	}
}
