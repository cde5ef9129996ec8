package planner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/metrics"
	"github.com/felixgeelhaar/taskplanner/internal/telemetry"
)

type options struct {
	config  Config
	logger  *log.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	newID   func() string
	now     func() time.Time
}

// Option configures a Drafter, Elaborator or Engine.
type Option func(*options)

// WithConfig replaces DefaultConfig.
func WithConfig(c Config) Option {
	return func(o *options) { o.config = c }
}

// WithLogger sets the logger. Defaults to log.DefaultLogger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records stage and plan metrics. Nil disables them.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracerProvider sets where spans go. Defaults to the provider installed by telemetry.InitProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = telemetry.Tracer(tp) }
}

func newOptions(opts []Option) options {
	o := options{
		config: DefaultConfig(),
		logger: log.DefaultLogger(),
		newID:  func() string { return uuid.NewString() },
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = telemetry.Tracer(nil)
	}
	return o
}

type requestIDKey struct{}

// ContextWithRequestID makes Plan use id instead of generating one, so
// callers can correlate a plan with their own request.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
