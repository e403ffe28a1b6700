package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics owns the service's prometheus collectors on a private registry.
type Metrics struct {
	registry          *prometheus.Registry
	requestCount      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errorCount        *prometheus.CounterVec
	reportTransitions *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
}

// NewMetrics registers collectors, including Go runtime and process metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		reportTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_events_total",
			Help: "Report lifecycle events by type.",
		}, []string{"event"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.reportTransitions,
		m.rateLimited,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(route, method, code).Inc()
}

// RecordReportEvent counts a report lifecycle event.
func (m *Metrics) RecordReportEvent(eventType string) {
	if m == nil {
		return
	}
	m.reportTransitions.WithLabelValues(eventType).Inc()
}

// RecordRateLimited counts a rejected request.
func (m *Metrics) RecordRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}
