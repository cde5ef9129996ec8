package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/taskplanner/internal/log"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 30 * time.Second

// Observer receives one observation per gateway call. kind is empty on success.
type Observer interface {
	ObserveProviderCall(provider, model, kind string, d time.Duration)
}

// Gateway performs exactly one bounded call against one provider and maps
// every outcome to either text or a *Failure.
type Gateway struct {
	timeout  time.Duration
	logger   *log.Logger
	observer Observer
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout overrides the per-call timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithGatewayLogger sets the logger used for per-call debug lines.
func WithGatewayLogger(l *log.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithObserver records call outcomes, typically into Prometheus.
func WithObserver(o Observer) GatewayOption {
	return func(g *Gateway) { g.observer = o }
}

// NewGateway creates a gateway with DefaultTimeout.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{timeout: DefaultTimeout, logger: log.DefaultLogger()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Timeout returns the per-call timeout.
func (g *Gateway) Timeout() time.Duration { return g.timeout }

// Complete sends req to client. It returns the non-empty response text, or a
// *Failure. It never retries.
func (g *Gateway) Complete(ctx context.Context, client Client, req *Request) (content string, err error) {
	name := client.Name()
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			content = ""
			err = &Failure{Kind: KindUnavailable, Provider: name, Message: fmt.Sprintf("panic: %v", r)}
		}

		kind := ""
		var f *Failure
		if errors.As(err, &f) {
			kind = string(f.Kind)
		}
		if g.observer != nil {
			g.observer.ObserveProviderCall(name, client.Model(), kind, time.Since(start))
		}
		g.logger.DebugContext(ctx, "provider call finished",
			"provider", name,
			"model", client.Model(),
			"duration_ms", time.Since(start).Milliseconds(),
			"outcome", outcome(kind),
		)
	}()

	resp, callErr := client.Complete(callCtx, req)
	if callErr != nil {
		return "", g.classify(ctx, callCtx, name, callErr)
	}

	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", malformed(name, "empty completion")
	}

	return resp.Content, nil
}

func (g *Gateway) classify(parent, call context.Context, name string, err error) *Failure {
	// The caller gave up: not the provider's fault, and not a timeout of ours.
	if parent.Err() != nil {
		return &Failure{Kind: KindUnavailable, Provider: name, Message: "request cancelled", Cause: parent.Err()}
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return &Failure{Kind: KindTimeout, Provider: name, Message: fmt.Sprintf("no response within %s", g.timeout), Cause: err}
	}
	return Classify(name, err)
}

func outcome(kind string) string {
	if kind == "" {
		return "ok"
	}
	return kind
}
