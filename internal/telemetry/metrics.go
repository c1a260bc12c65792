package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tabmemory"

// Metrics holds the Prometheus instruments. A nil *Metrics records nothing,
// so callers never need to guard.
type Metrics struct {
	reg *prometheus.Registry

	passesTotal   *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	probesTotal   *prometheus.CounterVec
	cacheEntries  prometheus.Gauge
	prunedTotal   prometheus.Counter
	requestsTotal *prometheus.CounterVec
	requestDur    prometheus.Histogram
}

// New builds a Metrics backed by its own registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		passesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Reconciliation passes by kind and outcome.",
		}, []string{"kind", "outcome"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Reconciliation pass duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Metadata probes by outcome.",
		}, []string{"outcome"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries in the video cache after the last pass.",
		}),
		prunedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_entries_total",
			Help:      "Cache entries removed because their tab closed.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status class.",
		}, []string{"method", "status_class"}),
		requestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.passesTotal,
		m.passDuration,
		m.probesTotal,
		m.cacheEntries,
		m.prunedTotal,
		m.requestsTotal,
		m.requestDur,
	)
	return m
}

// RecordPass records a finished pass. outcome is "ok", "busy" or "error".
func (m *Metrics) RecordPass(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.passesTotal.WithLabelValues(kind, outcome).Inc()
	m.passDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *Metrics) RecordProbe(outcome string) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

func (m *Metrics) RecordPruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.prunedTotal.Add(float64(n))
}

// RecordHTTP records one served request. Call it from the logging middleware.
func (m *Metrics) RecordHTTP(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, StatusClass(status)).Inc()
	m.requestDur.Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format. A nil Metrics
// serves 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// StatusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx).
func StatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
