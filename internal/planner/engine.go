// Package planner turns a goal into an ordered task plan.
//
// Planning runs in two stages. The Drafter asks a provider for task titles,
// then the Elaborator asks for the details of each title in turn, giving it
// the titles that came before so dependencies only point backwards. Providers
// are tried in registry order at each step and the first usable reply wins.
// When drafting fails everywhere the engine returns FallbackPlan; when a single
// elaboration fails that task gets a minimal spec. Plan only returns an error
// for an empty goal or a cancelled context.
package planner

import (
	"context"
	stderrors "errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
	"github.com/felixgeelhaar/taskplanner/internal/telemetry"
)

// Planner is satisfied by *Engine and by decorators such as the plan cache.
type Planner interface {
	Plan(ctx context.Context, req Request) (*Result, error)
}

// Engine orchestrates drafting, elaboration and fallback. It is safe for concurrent use.
type Engine struct {
	registry   *provider.Registry
	drafter    *Drafter
	elaborator *Elaborator
	opts       options
}

// New creates an Engine. A nil or empty registry makes every plan a fallback plan.
func New(registry *provider.Registry, gateway *provider.Gateway, opts ...Option) *Engine {
	if gateway == nil {
		gateway = provider.NewGateway()
	}
	o := newOptions(opts)
	runner := stageRunner{registry: registry, gateway: gateway, opts: o}
	return &Engine{
		registry:   registry,
		drafter:    &Drafter{runner: runner},
		elaborator: &Elaborator{runner: runner},
		opts:       o,
	}
}

// Config returns the engine's planner settings.
func (e *Engine) Config() Config { return e.opts.config }

// Plan produces a plan for req.Goal.
func (e *Engine) Plan(ctx context.Context, req Request) (*Result, error) {
	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		return nil, errors.NewEmptyGoalError()
	}

	start := e.opts.now()
	id, ok := RequestIDFromContext(ctx)
	if !ok {
		id = e.opts.newID()
	}

	ctx, span := e.opts.tracer.Start(ctx, "planner.Plan", trace.WithAttributes(
		attribute.String("request_id", id),
		attribute.Int("providers", e.registry.Len()),
		attribute.Int("task_hint", req.DesiredTaskCountHint),
	))
	defer span.End()

	logger := e.opts.logger.With("request_id", id)
	logger.InfoContext(ctx, "planning started", "providers", e.registry.Len(), "task_hint", req.DesiredTaskCountHint)

	res, err := e.plan(ctx, id, goal, req.DesiredTaskCountHint)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithError(err).WarnContext(ctx, "planning abandoned")
		return nil, err
	}

	elapsed := e.opts.now().Sub(start)
	e.opts.metrics.ObservePlan(string(res.Source), len(res.Plan), res.Degraded, elapsed)
	telemetry.RecordSuccess(span,
		attribute.String("source", string(res.Source)),
		attribute.String("provider", res.Provider),
		attribute.Int("tasks", len(res.Plan)),
		attribute.Int("degraded", res.Degraded),
	)
	logger.InfoContext(ctx, "planning finished",
		"source", res.Source,
		"provider", res.Provider,
		"tasks", len(res.Plan),
		"degraded", res.Degraded,
		"duration", elapsed,
	)
	return res, nil
}

func (e *Engine) plan(ctx context.Context, id, goal string, hint int) (*Result, error) {
	res := &Result{RequestID: id, Goal: goal}
	logger := e.opts.logger.With("request_id", id)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !e.registry.Any() {
		logger.InfoContext(ctx, "no providers configured, using fallback plan")
		res.Plan, res.Source = FallbackPlan(goal), SourceFallback
		return res, nil
	}

	drafts, providerName, err := e.drafter.Draft(ctx, goal, hint)
	if err != nil {
		if !stderrors.Is(err, ErrStageFailed) {
			return nil, err
		}
		logger.WithError(err).WarnContext(ctx, "drafting failed on every provider, using fallback plan")
		res.Plan, res.Source = FallbackPlan(goal), SourceFallback
		return res, nil
	}
	res.Provider = providerName

	plan := make(Plan, 0, len(drafts))
	titles := make([]string, 0, len(drafts))
	for i, d := range drafts {
		spec, err := e.elaborator.Elaborate(ctx, d, goal, titles)
		if err != nil {
			if !stderrors.Is(err, ErrStageFailed) {
				return nil, err
			}
			previous := ""
			if i > 0 {
				previous = titles[i-1]
			}
			logger.WithError(err).WarnContext(ctx, "elaboration failed on every provider, using minimal task", "task", d.Title)
			spec = minimalSpec(d.Title, goal, i, previous)
			res.Degraded++
		}
		plan = append(plan, spec)
		titles = append(titles, d.Title)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Plan = finalize(plan, e.opts.config.maxTasks(hint))
	res.Source = SourceGenerated
	if res.Degraded > 0 {
		res.Source = SourcePartial
	}
	return res, nil
}
