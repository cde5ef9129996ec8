package cmd

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/taskplanner/internal/config"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/metrics"
	"github.com/felixgeelhaar/taskplanner/internal/plancache"
	"github.com/felixgeelhaar/taskplanner/internal/planner"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
)

// app is the wired planning stack shared by plan and serve.
type app struct {
	registry *provider.Registry
	engine   *planner.Engine
	planner  planner.Planner
}

// buildApp constructs providers, the gateway, the engine and the cache
// from cfg. m and tp may be nil.
func buildApp(ctx context.Context, cfg *config.Config, logger *log.Logger, m *metrics.Metrics, tp trace.TracerProvider) *app {
	registry := provider.NewRegistryFromConfig(ctx, cfg.ProvidersConfig, logger)
	return newApp(registry, cfg, logger, m, tp)
}

func newApp(registry *provider.Registry, cfg *config.Config, logger *log.Logger, m *metrics.Metrics, tp trace.TracerProvider) *app {
	gwOpts := []provider.GatewayOption{
		provider.WithTimeout(cfg.Timeout),
		provider.WithGatewayLogger(logger),
	}
	if m != nil {
		gwOpts = append(gwOpts, provider.WithObserver(m))
	}

	opts := []planner.Option{
		planner.WithConfig(cfg.Planner),
		planner.WithLogger(logger),
		planner.WithMetrics(m),
	}
	if tp != nil {
		opts = append(opts, planner.WithTracerProvider(tp))
	}

	engine := planner.New(registry, provider.NewGateway(gwOpts...), opts...)

	return &app{
		registry: registry,
		engine:   engine,
		planner:  plancache.New(engine, cfg.Cache, m, logger),
	}
}
