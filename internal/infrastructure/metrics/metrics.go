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

// HTTPBuckets are latency buckets in seconds.
var HTTPBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1, 2, 5}

// Metrics groups the collectors exported by the API process.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RequestsInProgress prometheus.Gauge

	PhotoOps        *prometheus.CounterVec
	PhotoOpDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New registers all collectors on a fresh registry together with the Go and
// process collectors.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := NewWithRegistry(namespace, reg)
	m.registry = reg
	return m
}

// NewWithRegistry registers the collectors on registerer. Used by tests.
func NewWithRegistry(namespace string, registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route template, method and status code",
			},
			[]string{"route", "method", "status_code"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route template",
				Buckets:   HTTPBuckets,
			},
			[]string{"route", "method"},
		),
		RequestsInProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_progress",
				Help:      "Current number of HTTP requests being served",
			},
		),
		PhotoOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "photo_store_operations_total",
				Help:      "Photo store operations by driver, operation and result",
			},
			[]string{"driver", "op", "result"},
		),
		PhotoOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "photo_store_operation_duration_seconds",
				Help:      "Photo store operation latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"driver", "op"},
		),
	}
}

func (m *Metrics) RecordRequest(route, method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(NormalizeRoute(route), method, strconv.Itoa(statusCode)).Inc()
	m.RequestDuration.WithLabelValues(NormalizeRoute(route), method).Observe(duration.Seconds())
}

// RecordPhotoOp implements storage.OpRecorder.
func (m *Metrics) RecordPhotoOp(driver, op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PhotoOps.WithLabelValues(driver, op, result).Inc()
	m.PhotoOpDuration.WithLabelValues(driver, op).Observe(duration.Seconds())
}

// Handler exposes the registry created by New, or the default registry otherwise.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IsHealthCheckEndpoint reports paths that are excluded from request metrics.
func IsHealthCheckEndpoint(path string) bool {
	switch path {
	case "/metrics", "/health", "/api/health":
		return true
	}
	return false
}

// NormalizeRoute keeps label cardinality bounded: unmatched routes share one label.
func NormalizeRoute(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}
