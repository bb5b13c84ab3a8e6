package monitoring

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector handles Prometheus metrics collection. Each collector owns
// its registry so several can coexist in one process.
type MetricsCollector struct {
	serviceName string
	registry    *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	dbQueriesTotal      *prometheus.CounterVec
	dbQueryDuration     *prometheus.HistogramVec
	dbConnections       *prometheus.GaugeVec
	errorResponses      *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	m := &MetricsCollector{
		serviceName: serviceName,
		registry:    prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code", "service"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "service"},
		),
		dbQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_queries_total",
				Help: "Total number of database statements",
			},
			[]string{"operation", "table", "status", "service"},
		),
		dbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database statements in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"operation", "table", "service"},
		),
		dbConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "db_connections",
				Help: "Database pool connections by state",
			},
			[]string{"state", "service"},
		),
		errorResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_error_responses_total",
				Help: "Total number of error responses by error code",
			},
			[]string{"code", "service"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dbQueriesTotal,
		m.dbQueryDuration,
		m.dbConnections,
		m.errorResponses,
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics. route should be the route
// template, not the raw path, to keep label cardinality bounded.
func (m *MetricsCollector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode), m.serviceName).Inc()
	m.httpRequestDuration.WithLabelValues(method, route, m.serviceName).Observe(duration.Seconds())
}

// RecordDBQuery records one tracked database statement
func (m *MetricsCollector) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueriesTotal.WithLabelValues(operation, table, status, m.serviceName).Inc()
	m.dbQueryDuration.WithLabelValues(operation, table, m.serviceName).Observe(duration.Seconds())
}

// RecordDBStats publishes connection pool gauges
func (m *MetricsCollector) RecordDBStats(stats sql.DBStats) {
	m.dbConnections.WithLabelValues("open", m.serviceName).Set(float64(stats.OpenConnections))
	m.dbConnections.WithLabelValues("in_use", m.serviceName).Set(float64(stats.InUse))
	m.dbConnections.WithLabelValues("idle", m.serviceName).Set(float64(stats.Idle))
}

// RecordError counts an error response by its code
func (m *MetricsCollector) RecordError(code string) {
	m.errorResponses.WithLabelValues(code, m.serviceName).Inc()
}

// Registry exposes the underlying registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
