package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counter sums the samples of the named family whose labels include want.
func counter(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metric:
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metric
				}
			}
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSymbol("buy", OutcomeSucceeded, 10*time.Millisecond)
	m.ObserveSymbol("buy", OutcomeSucceeded, 20*time.Millisecond)
	m.ObserveSymbol("buy", OutcomeFailed, time.Millisecond)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.AddRecommendations("sell", 3)

	if got := counter(t, reg, "yupan_symbols_total", map[string]string{"operate": "buy", "outcome": OutcomeSucceeded}); got != 2 {
		t.Errorf("succeeded = %v, want 2", got)
	}
	if got := counter(t, reg, "yupan_cache_lookups_total", map[string]string{"result": "miss"}); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := counter(t, reg, "yupan_recommendations_total", map[string]string{"operate": "sell"}); got != 3 {
		t.Errorf("sell recommendations = %v, want 3", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveSymbol("buy", OutcomeSkipped, time.Second)
	m.ObserveCache(true)
	m.AddRecommendations("buy", 1)
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.AddRecommendations("buy", 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "yupan_recommendations_total") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
