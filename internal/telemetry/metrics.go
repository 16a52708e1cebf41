package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics are the request collectors exported on the metrics endpoint.
type HTTPMetrics struct {
	// RequestsTotal counts finished requests by method, route pattern and status.
	RequestsTotal *prometheus.CounterVec
	// RequestDuration observes request latency by method and route pattern.
	RequestDuration *prometheus.HistogramVec
	// InflightRequests is the number of requests being served.
	InflightRequests prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewHTTPMetrics creates the collectors and registers them with a fresh registry, so
// that several servers (tests) can coexist in one process.
func NewHTTPMetrics(namespace string) *HTTPMetrics {
	reg := prometheus.NewRegistry()

	m := &HTTPMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		InflightRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_inflight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.InflightRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *HTTPMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
