// Package metrics holds the Prometheus instruments for sweeps, the cache and
// recommendations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for SymbolsTotal.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics holds all Prometheus metrics for yupan.
type Metrics struct {
	SymbolsTotal         *prometheus.CounterVec // labels: operate, outcome
	CacheLookups         *prometheus.CounterVec // labels: result=hit|miss
	RecommendationsTotal *prometheus.CounterVec // labels: operate
	SimulationDur        *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them on reg. A nil reg uses a
// fresh private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yupan_symbols_total",
			Help: "Symbols processed by a sweep, by operation and outcome",
		}, []string{"operate", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yupan_cache_lookups_total",
			Help: "Recommendation cache lookups by result",
		}, []string{"result"}),
		RecommendationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yupan_recommendations_total",
			Help: "Recommendations produced, by operation",
		}, []string{"operate"}),
		SimulationDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yupan_simulation_seconds",
			Help:    "Per-symbol load and simulation time",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"operate"}),
	}
	reg.MustRegister(m.SymbolsTotal, m.CacheLookups, m.RecommendationsTotal, m.SimulationDur)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveSymbol records one symbol's outcome and duration. Nil-safe.
func (m *Metrics) ObserveSymbol(operate, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SymbolsTotal.WithLabelValues(operate, outcome).Inc()
	m.SimulationDur.WithLabelValues(operate).Observe(d.Seconds())
}

// ObserveCache records a cache lookup. Nil-safe.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// AddRecommendations counts n recommendations. Nil-safe.
func (m *Metrics) AddRecommendations(operate string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecommendationsTotal.WithLabelValues(operate).Add(float64(n))
}

// Handler serves the registry the metrics were registered on, or the
// default gatherer when that registry cannot gather.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
