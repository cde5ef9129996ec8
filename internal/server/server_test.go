package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/health"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/metrics"
	"github.com/felixgeelhaar/taskplanner/internal/planner"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
	"github.com/felixgeelhaar/taskplanner/internal/provider/providertest"
)

type plannerFunc func(ctx context.Context, req planner.Request) (*planner.Result, error)

func (f plannerFunc) Plan(ctx context.Context, req planner.Request) (*planner.Result, error) {
	return f(ctx, req)
}

type fixture struct {
	server  *Server
	metrics *metrics.Metrics
	probes  *health.ProbeManager
}

func newFixture(t *testing.T, p planner.Planner, cfg Config, clients ...provider.Client) fixture {
	t.Helper()
	reg, m := metrics.NewRegistry()
	registry := provider.NewRegistry(clients...)
	probes := health.NewProbeManager("1.0.0")
	probes.AddChecker(health.NewProviderChecker(registry))

	if p == nil {
		p = planner.New(registry, provider.NewGateway(provider.WithGatewayLogger(log.Discard())),
			planner.WithLogger(log.Discard()), planner.WithMetrics(m))
	}

	s := New(Deps{
		Planner:  p,
		Registry: registry,
		Probes:   probes,
		Metrics:  m,
		Gatherer: reg,
		Logger:   log.Discard(),
	}, cfg)
	return fixture{server: s, metrics: m, probes: probes}
}

func (f fixture) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestNewServerDefaults(t *testing.T) {
	s := New(Deps{Planner: plannerFunc(nil)}, Config{Address: ":8080"})

	if s.shutdownTimeout != 30*time.Second {
		t.Errorf("default shutdown timeout: expected 30s, got %v", s.shutdownTimeout)
	}
	if s.httpServer.ReadTimeout != 10*time.Second {
		t.Errorf("default read timeout: expected 10s, got %v", s.httpServer.ReadTimeout)
	}
	if s.httpServer.WriteTimeout != 5*time.Minute {
		t.Errorf("default write timeout: expected 5m, got %v", s.httpServer.WriteTimeout)
	}
	if s.planTimeout != 4*time.Minute {
		t.Errorf("default plan timeout: expected 4m, got %v", s.planTimeout)
	}
	if s.limiter != nil {
		t.Error("zero rate limit should disable the limiter")
	}
}

func TestPlanWithoutProviders(t *testing.T) {
	f := newFixture(t, nil, DefaultConfig())

	w := f.do(http.MethodPost, "/v1/plans", `{"goal": "Launch a website in 3 weeks"}`, RequestIDHeader, "abc-123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var res planner.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "abc-123", res.RequestID)
	assert.Equal(t, planner.SourceFallback, res.Source)
	assert.Equal(t, planner.FallbackPlan("Launch a website in 3 weeks"), res.Plan)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("POST /v1/plans", "200")))
}

func TestPlanWithProvider(t *testing.T) {
	stub := providertest.New("openai",
		providertest.Text(`["Research", "Build"]`),
		providertest.Text(`{"description": "Look around", "phase": "RESEARCH", "priority": "HIGH"}`),
		providertest.Text(`{"description": "Make it", "dependencies": ["Research"], "phase": "EXECUTION", "priority": "HIGH"}`),
	)
	f := newFixture(t, nil, DefaultConfig(), stub)

	w := f.do(http.MethodPost, "/v1/plans", `{"goal": "Build a shed", "desiredTaskCountHint": 6}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "generated", body["source"])
	assert.Equal(t, "openai", body["provider"])
	assert.Equal(t, w.Header().Get(RequestIDHeader), body["requestId"])

	plan := body["plan"].([]any)
	require.Len(t, plan, 2)
	second := plan[1].(map[string]any)
	assert.Equal(t, "Build", second["title"])
	assert.Equal(t, []any{"Research"}, second["dependencies"])
	assert.Equal(t, "2-3 days", second["estimatedDuration"])
}

func TestPlanBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   errors.ErrorCode
	}{
		{"empty body", ``, http.StatusBadRequest, errors.ErrCodePlanBadRequest},
		{"malformed json", `{"goal": `, http.StatusBadRequest, errors.ErrCodePlanBadRequest},
		{"wrong type", `{"goal": 42}`, http.StatusBadRequest, errors.ErrCodePlanBadRequest},
		{"empty goal", `{"goal": "   "}`, http.StatusBadRequest, errors.ErrCodePlanEmptyGoal},
		{"too large", `{"goal": "` + strings.Repeat("x", 2048) + `"}`, http.StatusRequestEntityTooLarge, errors.ErrCodePlanBadRequest},
	}

	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 1024
	f := newFixture(t, nil, cfg)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/v1/plans", tt.body)
			require.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

			var body errorBody
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Errors.WithLabelValues("PLAN-001", "server")))
}

func TestPlanRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0.001
	cfg.Burst = 1
	f := newFixture(t, nil, cfg)

	first := f.do(http.MethodPost, "/v1/plans", `{"goal": "one"}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := f.do(http.MethodPost, "/v1/plans", `{"goal": "two"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HTTPRateLimited))

	var body errorBody
	require.NoError(t, json.NewDecoder(second.Body).Decode(&body))
	assert.Equal(t, errors.ErrCodePlanRateLimited, body.Error.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Errors.WithLabelValues("PLAN-005", "server")))
}

func TestPlanDeadline(t *testing.T) {
	var deadline time.Time
	p := plannerFunc(func(ctx context.Context, req planner.Request) (*planner.Result, error) {
		deadline, _ = ctx.Deadline()
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cfg := DefaultConfig()
	cfg.PlanTimeout = 20 * time.Millisecond
	f := newFixture(t, p, cfg)

	start := time.Now()
	w := f.do(http.MethodPost, "/v1/plans", `{"goal": "x"}`)

	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.WithinDuration(t, start.Add(cfg.PlanTimeout), deadline, time.Second)

	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, errors.ErrCodePlanTimeout, body.Error.Code)
	assert.Contains(t, body.Error.Message, "20ms")
}

func TestPlanInternalError(t *testing.T) {
	p := plannerFunc(func(context.Context, planner.Request) (*planner.Result, error) {
		return nil, &planner.StageError{Stage: planner.StageDraft}
	})
	f := newFixture(t, p, DefaultConfig())

	w := f.do(http.MethodPost, "/v1/plans", `{"goal": "x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPlanPassesRequestIDToPlanner(t *testing.T) {
	var seen string
	p := plannerFunc(func(ctx context.Context, req planner.Request) (*planner.Result, error) {
		seen, _ = planner.RequestIDFromContext(ctx)
		return &planner.Result{RequestID: seen, Goal: req.Goal, Plan: planner.FallbackPlan(req.Goal), Source: planner.SourceFallback}, nil
	})
	f := newFixture(t, p, DefaultConfig())
	f.server.newID = func() string { return "generated-id" }

	w := f.do(http.MethodPost, "/v1/plans", `{"goal": "x"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "generated-id", seen)
	assert.Equal(t, "generated-id", w.Header().Get(RequestIDHeader))
}

func TestProviders(t *testing.T) {
	f := newFixture(t, nil, DefaultConfig(), providertest.New("anthropic"), providertest.New("gemini"))

	w := f.do(http.MethodGet, "/v1/providers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"providers": [
			{"name": "anthropic", "model": "anthropic-test"},
			{"name": "gemini", "model": "gemini-test"}
		],
		"fallbackOnly": false
	}`, w.Body.String())

	empty := newFixture(t, nil, DefaultConfig())
	w = empty.do(http.MethodGet, "/v1/providers", "")
	assert.JSONEq(t, `{"providers": [], "fallbackOnly": true}`, w.Body.String())
}

func TestHealthProbes(t *testing.T) {
	f := newFixture(t, nil, DefaultConfig())

	w := f.do(http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	var ready health.ProbeResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ready))
	assert.Equal(t, health.StatusDegraded, ready.Status)
	assert.Equal(t, "1.0.0", ready.Version)
	assert.Contains(t, ready.Checks, "providers")

	w = f.do(http.MethodPost, "/health/live", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	f.probes.MarkShutdown()
	w = f.do(http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = f.do(http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil, DefaultConfig())
	f.do(http.MethodPost, "/v1/plans", `{"goal": "x"}`)

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `taskplanner_plan_generations_total{source="fallback"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, nil, DefaultConfig())
	w := f.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{RateLimit: -1}.Validate())
	assert.Error(t, Config{RateLimit: 1}.Validate())
	assert.Error(t, Config{MaxBodyBytes: -1}.Validate())
	assert.Error(t, Config{PlanTimeout: -time.Second}.Validate())
	assert.NoError(t, Config{PlanTimeout: time.Minute, WriteTimeout: 2 * time.Minute}.Validate())

	err := Config{WriteTimeout: time.Minute}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan_timeout")
}

func TestServerLifecycle(t *testing.T) {
	f := newFixture(t, nil, Config{ShutdownTimeout: time.Second})

	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback listener unavailable: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- f.server.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/health/live")
	if err != nil {
		t.Fatalf("live probe: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live probe: expected 200, got %d", resp.StatusCode)
	}

	if f.server.IsShuttingDown() {
		t.Error("server should not be shutting down initially")
	}
	if err := f.server.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !f.server.IsShuttingDown() || !f.probes.IsShuttingDown() {
		t.Error("server and probes should report shutdown")
	}

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			t.Errorf("expected ErrServerClosed, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Error("server did not stop")
	}
}
