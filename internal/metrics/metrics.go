package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the tap's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	recordsEmitted *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpRetries    prometheus.Counter
	tokenRefreshes prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tap_records_emitted_total",
			Help: "Records written to the output, per stream.",
		}, []string{"stream"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tap_http_requests_total",
			Help: "HTTP requests sent to the vendor API, by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tap_http_request_duration_seconds",
			Help:    "Latency of vendor API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		httpRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tap_http_retries_total",
			Help: "Retried vendor API requests.",
		}),
		tokenRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tap_token_refreshes_total",
			Help: "Access token refresh exchanges.",
		}),
	}
	m.registry.MustRegister(m.recordsEmitted, m.httpRequests, m.httpDuration, m.httpRetries, m.tokenRefreshes)
	return m
}

func (m *Metrics) RecordEmitted(stream string) {
	if m == nil {
		return
	}
	m.recordsEmitted.WithLabelValues(stream).Inc()
}

// ObserveRequest records one dispatched request. code is 0 for transport failures.
func (m *Metrics) ObserveRequest(method string, code int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(took.Seconds())
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.httpRetries.Inc()
}

func (m *Metrics) TokenRefreshed() {
	if m == nil {
		return
	}
	m.tokenRefreshes.Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
