package planner

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
	"github.com/felixgeelhaar/taskplanner/internal/telemetry"
)

// Stage names used in errors, logs, spans and metrics.
const (
	StageDraft     = "draft"
	StageElaborate = "elaborate"
)

// ErrStageFailed matches every *StageError.
var ErrStageFailed = errors.Sentinel(errors.ErrCodePlanStageFailed)

// StageError reports that every provider failed a stage. Attempts holds one
// error per provider tried, in order.
type StageError struct {
	Stage    string
	Attempts []error
}

func (e *StageError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s stage failed: no providers available", e.Stage)
	}
	parts := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%s stage failed after %d attempt(s): %s", e.Stage, len(e.Attempts), strings.Join(parts, "; "))
}

func (e *StageError) Unwrap() []error { return e.Attempts }

func (e *StageError) Is(target error) bool { return target == ErrStageFailed }

// stageRunner tries providers in registry order until one produces a usable value.
type stageRunner struct {
	registry *provider.Registry
	gateway  *provider.Gateway
	opts     options
}

// attemptFunc turns one completion into the stage's value. Its error marks
// the reply unusable and moves on to the next provider.
type attemptFunc[T any] func(content string) (T, error)

func rotate[T any](ctx context.Context, r stageRunner, stage string, req *provider.Request, parse attemptFunc[T]) (T, string, error) {
	var zero T
	clients := r.registry.Available()
	stageErr := &StageError{Stage: stage}

	for i, client := range clients {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		value, err := attempt(ctx, r, stage, i+1, client, req, parse)
		if err == nil {
			return value, client.Name(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, "", ctxErr
		}
		stageErr.Attempts = append(stageErr.Attempts, err)
	}

	r.opts.metrics.ObserveStageFailure(stage)
	return zero, "", stageErr
}

func attempt[T any](ctx context.Context, r stageRunner, stage string, n int, client provider.Client, req *provider.Request, parse attemptFunc[T]) (T, error) {
	ctx, span := r.opts.tracer.Start(ctx, "planner.attempt", trace.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("provider", client.Name()),
		attribute.String("model", client.Model()),
		attribute.Int("attempt", n),
	))
	defer span.End()

	logger := r.opts.logger.With("stage", stage, "provider", client.Name(), "attempt", n)

	var zero T
	content, err := r.gateway.Complete(ctx, client, req)
	if err == nil {
		var value T
		value, err = parse(content)
		if err == nil {
			r.opts.metrics.ObserveStageAttempt(stage, client.Name(), true)
			telemetry.RecordSuccess(span)
			logger.DebugContext(ctx, "stage attempt succeeded")
			return value, nil
		}
	}

	r.opts.metrics.ObserveStageAttempt(stage, client.Name(), false)
	telemetry.RecordError(span, err)

	logger.WithError(operatorError(client.Name(), err)).WarnContext(ctx, "stage attempt failed, trying next provider")
	return zero, err
}

// operatorError attaches remediation hints to auth and rate limit failures.
func operatorError(name string, err error) error {
	var failure *provider.Failure
	if !stderrors.As(err, &failure) {
		return err
	}
	switch failure.Kind {
	case provider.KindAuth:
		return errors.NewProviderAuthError(name).WithCause(err)
	case provider.KindRateLimited:
		return errors.NewProviderRateLimitError(name).WithCause(err)
	}
	return err
}
