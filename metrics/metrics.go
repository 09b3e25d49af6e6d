// Package metrics exposes Prometheus counters for captures and rank checks.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "serprank"

// Check outcomes.
const (
	OutcomeRanked   = "ranked"
	OutcomeUnranked = "unranked"
	OutcomeFailed   = "failed"
)

// Capture results.
const (
	CaptureOK      = "ok"
	CaptureError   = "error"
	CaptureBlocked = "blocked"
)

// Metrics holds the service collectors on a private registry. All methods
// are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	captures        *prometheus.CounterVec
	captureDuration prometheus.Histogram
	checks          *prometheus.CounterVec
	estimates       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		captures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Result page captures by outcome.",
		}, []string{"result"}),
		captureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Time spent capturing one result page.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_checks_total",
			Help:      "Rank checks by outcome.",
		}, []string{"outcome"}),
		estimates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimates_total",
			Help:      "Volume estimates by content kind and limit flag.",
		}, []string{"kind", "limit"}),
	}
}

// ObserveCapture records one capture attempt with one of the Capture*
// results.
func (m *Metrics) ObserveCapture(d time.Duration, result string) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(result).Inc()
	m.captureDuration.Observe(d.Seconds())
}

// ObserveCheck records a rank check outcome.
func (m *Metrics) ObserveCheck(outcome string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(outcome).Inc()
}

// ObserveEstimate records an estimate for a content kind.
func (m *Metrics) ObserveEstimate(kind string, isLimit bool) {
	if m == nil {
		return
	}
	limit := "false"
	if isLimit {
		limit = "true"
	}
	m.estimates.WithLabelValues(kind, limit).Inc()
}

// RegisterPool exports browser pool occupancy read from stats on scrape.
func (m *Metrics) RegisterPool(stats func() (size, idle, waiting int)) {
	if m == nil {
		return
	}
	gauge := func(name, help string, pick func(size, idle, waiting int) int) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "browser_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(pick(stats()))
		}))
	}
	gauge("size", "Browsers in the pool.", func(s, _, _ int) int { return s })
	gauge("idle", "Idle browsers.", func(_, i, _ int) int { return i })
	gauge("waiting", "Callers waiting for a browser.", func(_, _, w int) int { return w })
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
