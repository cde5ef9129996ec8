package health

import (
	"context"

	"github.com/felixgeelhaar/taskplanner/internal/provider"
)

// ProviderChecker reports which providers the planner can rotate through.
// It makes no network calls. An empty registry is degraded, not unhealthy,
// because the planner still answers with its fallback plan.
type ProviderChecker struct {
	registry *provider.Registry
}

// NewProviderChecker checks registry.
func NewProviderChecker(registry *provider.Registry) *ProviderChecker {
	return &ProviderChecker{registry: registry}
}

func (c *ProviderChecker) Name() string { return "providers" }

func (c *ProviderChecker) Check(context.Context) *Result {
	infos := c.registry.Describe()
	if len(infos) == 0 {
		return Degraded("no providers configured, serving fallback plans").
			WithDetail("provider_count", 0)
	}
	return Healthy("providers configured").
		WithDetail("provider_count", len(infos)).
		WithDetail("providers", infos)
}

// PingChecker sends a one-word completion to a single provider. It costs a
// request, so it is only used on demand by `taskplanner doctor --ping`.
type PingChecker struct {
	client  provider.Client
	gateway *provider.Gateway
}

// NewPingChecker pings client through gateway.
func NewPingChecker(client provider.Client, gateway *provider.Gateway) *PingChecker {
	return &PingChecker{client: client, gateway: gateway}
}

func (c *PingChecker) Name() string { return "ping:" + c.client.Name() }

func (c *PingChecker) Check(ctx context.Context) *Result {
	_, err := c.gateway.Complete(ctx, c.client, &provider.Request{
		Prompt:    "Reply with the single word OK.",
		MaxTokens: 5,
	})
	if err != nil {
		return Unhealthy(err.Error()).WithDetail("model", c.client.Model())
	}
	return Healthy("provider answered").WithDetail("model", c.client.Model())
}
