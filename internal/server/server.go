// Package server exposes the planner over HTTP.
//
// Routes:
//
//	POST /v1/plans       plan a goal
//	GET  /v1/providers   configured providers in fallback order
//	GET  /health/live    liveness probe
//	GET  /health/ready   readiness probe
//	GET  /metrics        Prometheus exposition
//
// Every response carries an X-Request-ID header. Shutdown fails readiness
// first, then drains connections.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/health"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/metrics"
	"github.com/felixgeelhaar/taskplanner/internal/planner"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// Config holds listener, rate limit and timeout settings.
type Config struct {
	Address string `yaml:"address"`

	// RateLimit is the sustained number of plan requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	// MaxBodyBytes caps the plan request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// PlanTimeout bounds one plan request. Providers still being tried when
	// it expires are abandoned and the client gets a 504.
	PlanTimeout time.Duration `yaml:"plan_timeout"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	// WriteTimeout must exceed PlanTimeout so the 504 can still be written.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DefaultConfig listens on :8080 and admits two plans a second with bursts of five.
func DefaultConfig() Config {
	return Config{
		Address:         ":8080",
		RateLimit:       2,
		Burst:           5,
		MaxBodyBytes:    64 << 10,
		PlanTimeout:     4 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     60 * time.Second,
	}
}

// Validate rejects negative limits.
func (c Config) Validate() error {
	switch {
	case c.RateLimit < 0:
		return errors.NewConfigInvalidError("server.rate_limit must be non-negative")
	case c.RateLimit > 0 && c.Burst < 1:
		return errors.NewConfigInvalidError("server.burst must be at least 1 when rate_limit is set")
	case c.MaxBodyBytes < 0:
		return errors.NewConfigInvalidError("server.max_body_bytes must be non-negative")
	case c.PlanTimeout < 0 || c.WriteTimeout < 0:
		return errors.NewConfigInvalidError("server timeouts must be non-negative")
	}
	d := c.withDefaults()
	if d.PlanTimeout >= d.WriteTimeout {
		return errors.NewConfigInvalidError(fmt.Sprintf("server.plan_timeout (%s) must be below write_timeout (%s)", d.PlanTimeout, d.WriteTimeout))
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.PlanTimeout == 0 {
		c.PlanTimeout = d.PlanTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	return c
}

// Deps are the collaborators the server routes to. Planner is required.
type Deps struct {
	Planner  planner.Planner
	Registry *provider.Registry
	Probes   *health.ProbeManager
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics; the route is omitted when nil.
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
}

// Server serves the planner API.
type Server struct {
	httpServer *http.Server
	deps       Deps
	limiter    *rate.Limiter
	maxBody    int64
	inShutdown atomic.Bool

	planTimeout     time.Duration
	shutdownTimeout time.Duration
	newID           func() string
}

// New creates a Server; it does not start listening.
func New(deps Deps, cfg Config) *Server {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = log.DefaultLogger()
	}
	if deps.Probes == nil {
		deps.Probes = health.NewProbeManager("")
	}

	s := &Server{
		deps:            deps,
		maxBody:         cfg.MaxBodyBytes,
		planTimeout:     cfg.PlanTimeout,
		shutdownTimeout: cfg.ShutdownTimeout,
		newID:           uuid.NewString,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	s.deps.Logger.Info("server listening", "address", l.Addr().String())
	return s.httpServer.Serve(l)
}

// Shutdown fails readiness, stops keep-alives and waits up to the shutdown
// timeout for in-flight plans.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.deps.Probes.MarkShutdown()
	s.httpServer.SetKeepAlivesEnabled(false)

	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// IsShuttingDown reports whether Shutdown has been called.
func (s *Server) IsShuttingDown() bool { return s.inShutdown.Load() }
