package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/taskplanner/internal/config"
	"github.com/felixgeelhaar/taskplanner/internal/health"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/metrics"
	"github.com/felixgeelhaar/taskplanner/internal/server"
	"github.com/felixgeelhaar/taskplanner/internal/telemetry"
	"github.com/felixgeelhaar/taskplanner/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planner over HTTP",
	Long: `Start an HTTP server exposing the planner.

Endpoints:
  POST /v1/plans      - plan a goal: {"goal": "...", "desiredTaskCountHint": 6}
  GET  /v1/providers  - providers in fallback order
  GET  /health/live   - liveness probe
  GET  /health/ready  - readiness probe
  GET  /metrics       - Prometheus metrics

The server drains in-flight plans on SIGTERM or SIGINT, failing readiness
first so load balancers stop routing to it.

Example:
  taskplanner serve --address :9090 --rate 5 --burst 10`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddress string
	serveRate    float64
	serveBurst   int
)

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "address to listen on (default from config, :8080)")
	serveCmd.Flags().Float64Var(&serveRate, "rate", -1, "plan requests per second; 0 disables rate limiting")
	serveCmd.Flags().IntVar(&serveBurst, "burst", 0, "rate limiter burst size")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := *appConfig
	if serveAddress != "" {
		cfg.Server.Address = serveAddress
	}
	if serveRate >= 0 {
		cfg.Server.RateLimit = serveRate
	}
	if serveBurst > 0 {
		cfg.Server.Burst = serveBurst
	}
	if err := cfg.Server.Validate(); err != nil {
		return err
	}

	l, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Address, err)
	}
	return serve(cmd.Context(), &cfg, l, log.DefaultLogger())
}

// serve runs the HTTP server on l until ctx is cancelled, then shuts down
// gracefully and flushes traces.
func serve(ctx context.Context, cfg *config.Config, l net.Listener, logger *log.Logger) error {
	info := version.GetInfo()

	tracing := cfg.Tracing
	tracing.ServiceVersion = info.Version
	shutdownTracing, err := telemetry.InitProvider(ctx, tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("trace flush failed")
		}
	}()

	reg, m := metrics.NewRegistry()
	a := buildApp(ctx, cfg, logger, m, telemetry.GetTracerProvider())

	probes := health.NewProbeManager(info.Version)
	probes.AddChecker(health.NewProviderChecker(a.registry))

	srv := server.New(server.Deps{
		Planner:  a.planner,
		Registry: a.registry,
		Probes:   probes,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	}, cfg.Server)

	plannerCfg := a.engine.Config()
	logger.Info("taskplanner starting",
		"version", info.Version,
		"providers", a.registry.Len(),
		"min_tasks", plannerCfg.MinTasks,
		"max_tasks", plannerCfg.MaxTasks,
		"cache", cfg.Cache.Enabled,
		"tracing", cfg.Tracing.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(l); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)

		// the parent is already cancelled; give draining its own deadline
		shutdownCtx := context.WithoutCancel(gctx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
