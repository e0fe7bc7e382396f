package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveProviderCall("primary", "openai", OutcomeError, 10*time.Millisecond)
	m.ObserveProviderCall("secondary", "deepseek", OutcomeSuccess, 20*time.Millisecond)
	m.ObserveProviderCall("secondary", "deepseek", OutcomeSuccess, 20*time.Millisecond)
	m.ObserveTurn("secondary")
	m.ObserveSatisfaction("positive")
	m.ObservePostProcess("memory", errors.New("boom"))

	if got := testutil.ToFloat64(m.providerCalls.WithLabelValues("secondary", "deepseek", OutcomeSuccess)); got != 2 {
		t.Errorf("provider_calls_total{secondary,success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.turns.WithLabelValues("secondary")); got != 1 {
		t.Errorf("turns_total{secondary} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.postProcess.WithLabelValues("memory", OutcomeError)); got != 1 {
		t.Errorf("post_process_total{memory,error} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.satisfaction); n != 1 {
		t.Errorf("satisfaction series = %d, want 1", n)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveProviderCall("primary", "openai", OutcomeSuccess, time.Second)
	m.ObserveTurn("local")
	m.ObserveSatisfaction("neutral")
	m.ObservePostProcess("analytics", nil)
}
