package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for taskplanner.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Provider call metrics
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec

	// Pipeline stage metrics
	StageAttempts *prometheus.CounterVec
	StageFailures *prometheus.CounterVec

	// Plan generation metrics
	PlanGenerations *prometheus.CounterVec
	PlanDuration    *prometheus.HistogramVec
	PlanTaskCount   prometheus.Histogram
	PlanDegraded    prometheus.Counter

	// Plan cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// HTTP surface metrics
	HTTPRequests    *prometheus.CounterVec
	HTTPRateLimited prometheus.Counter

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		ProviderCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskplanner_provider_calls_total",
				Help: "Total number of LLM provider calls",
			},
			[]string{"provider", "model", "success"},
		),
		ProviderLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskplanner_provider_latency_seconds",
				Help:    "LLM provider call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"provider", "model"},
		),
		ProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskplanner_provider_errors_total",
				Help: "Total number of LLM provider failures by kind",
			},
			[]string{"provider", "model", "kind"},
		),

		StageAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskplanner_stage_attempts_total",
				Help: "Provider attempts per pipeline stage",
			},
			[]string{"stage", "provider", "success"},
		),
		StageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskplanner_stage_failures_total",
				Help: "Pipeline stages that exhausted every provider",
			},
			[]string{"stage"},
		),

		PlanGenerations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskplanner_plan_generations_total",
				Help: "Total number of plans produced, by source",
			},
			[]string{"source"},
		),
		PlanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskplanner_plan_duration_seconds",
				Help:    "End-to-end plan generation duration in seconds",
				Buckets: []float64{0.01, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0},
			},
			[]string{"source"},
		),
		PlanTaskCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "taskplanner_plan_task_count",
				Help:    "Number of tasks in produced plans",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
			},
		),
		PlanDegraded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "taskplanner_plan_degraded_tasks_total",
				Help: "Tasks synthesised from a bare title after elaboration failed",
			},
		),

		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "taskplanner_plan_cache_hits_total",
				Help: "Plan cache hits",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "taskplanner_plan_cache_misses_total",
				Help: "Plan cache misses",
			},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskplanner_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		HTTPRateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "taskplanner_http_rate_limited_total",
				Help: "Plan requests rejected by the rate limiter",
			},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskplanner_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// ObserveProviderCall records one gateway call. kind is empty on success.
func (m *Metrics) ObserveProviderCall(provider, model, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, model, strconv.FormatBool(kind == "")).Inc()
	m.ProviderLatency.WithLabelValues(provider, model).Observe(d.Seconds())
	if kind != "" {
		m.ProviderErrors.WithLabelValues(provider, model, kind).Inc()
	}
}

// ObserveStageAttempt records one provider attempt within a stage.
func (m *Metrics) ObserveStageAttempt(stage, provider string, ok bool) {
	if m == nil {
		return
	}
	m.StageAttempts.WithLabelValues(stage, provider, strconv.FormatBool(ok)).Inc()
}

// ObserveStageFailure records a stage that exhausted every provider.
func (m *Metrics) ObserveStageFailure(stage string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage).Inc()
}

// ObservePlan records a produced plan.
func (m *Metrics) ObservePlan(source string, tasks, degraded int, d time.Duration) {
	if m == nil {
		return
	}
	m.PlanGenerations.WithLabelValues(source).Inc()
	m.PlanDuration.WithLabelValues(source).Observe(d.Seconds())
	m.PlanTaskCount.Observe(float64(tasks))
	if degraded > 0 {
		m.PlanDegraded.Add(float64(degraded))
	}
}

// ObserveCache records a plan cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

// ObserveHTTP records a served HTTP request.
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	if code == 429 {
		m.HTTPRateLimited.Inc()
	}
}

// ObserveError records a coded error.
func (m *Metrics) ObserveError(code, component string) {
	if m == nil || code == "" {
		return
	}
	m.Errors.WithLabelValues(code, component).Inc()
}
