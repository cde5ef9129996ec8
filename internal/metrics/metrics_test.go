package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveProviderCall(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveProviderCall("openai", "gpt-4o-mini", "", 150*time.Millisecond)
	m.ObserveProviderCall("openai", "gpt-4o-mini", "rate_limited", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.ProviderCalls.WithLabelValues("openai", "gpt-4o-mini", "true")); got != 1 {
		t.Errorf("successful calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ProviderCalls.WithLabelValues("openai", "gpt-4o-mini", "false")); got != 1 {
		t.Errorf("failed calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ProviderErrors.WithLabelValues("openai", "gpt-4o-mini", "rate_limited")); got != 1 {
		t.Errorf("rate_limited errors = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.ProviderLatency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
}

func TestObserveStages(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveStageAttempt("draft", "anthropic", false)
	m.ObserveStageAttempt("draft", "gemini", true)
	m.ObserveStageFailure("elaborate")

	if got := testutil.ToFloat64(m.StageAttempts.WithLabelValues("draft", "gemini", "true")); got != 1 {
		t.Errorf("draft success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StageFailures.WithLabelValues("elaborate")); got != 1 {
		t.Errorf("elaborate failures = %v, want 1", got)
	}
}

func TestObservePlanAndCache(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObservePlan("partial", 6, 2, time.Second)
	m.ObservePlan("fallback", 4, 0, time.Millisecond)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	if got := testutil.ToFloat64(m.PlanGenerations.WithLabelValues("partial")); got != 1 {
		t.Errorf("partial plans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PlanDegraded); got != 2 {
		t.Errorf("degraded tasks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheHits); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheMisses); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
}

func TestObserveHTTP(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveHTTP("/v1/plans", 200)
	m.ObserveHTTP("/v1/plans", 429)
	m.ObserveError("PLAN-001", "server")
	m.ObserveError("", "server")

	if got := testutil.ToFloat64(m.HTTPRateLimited); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/plans", "200")); got != 1 {
		t.Errorf("200 responses = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.Errors); got != 1 {
		t.Errorf("error series = %d, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.ObserveProviderCall("openai", "gpt", "timeout", time.Second)
	m.ObserveStageAttempt("draft", "openai", true)
	m.ObserveStageFailure("draft")
	m.ObservePlan("fallback", 4, 0, time.Second)
	m.ObserveCache(true)
	m.ObserveHTTP("/v1/plans", 200)
	m.ObserveError("PLAN-001", "engine")
}
