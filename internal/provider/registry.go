package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/log"
)

// Factory builds an adapter from its configuration.
type Factory func(ctx context.Context, cfg ProviderConfig, httpClient *http.Client) (Client, error)

var factories = map[string]Factory{
	"openai": func(_ context.Context, cfg ProviderConfig, hc *http.Client) (Client, error) {
		return NewOpenAIProvider(cfg, hc)
	},
	"anthropic": func(_ context.Context, cfg ProviderConfig, hc *http.Client) (Client, error) {
		return NewAnthropicProvider(cfg, hc)
	},
	"gemini": func(ctx context.Context, cfg ProviderConfig, hc *http.Client) (Client, error) {
		return NewGeminiProvider(ctx, cfg, hc)
	},
}

// Registry is the immutable, ordered set of usable providers.
// Order is fallback priority. Safe for concurrent reads.
type Registry struct {
	clients []Client
}

// NewRegistry creates a registry over the given clients in the given order.
func NewRegistry(clients ...Client) *Registry {
	return &Registry{clients: append([]Client(nil), clients...)}
}

// NewRegistryFromConfig builds adapters for every enabled provider that has a
// key, in cfg.Order(). A provider that fails to construct is logged and skipped.
// No credentials yields an empty registry.
func NewRegistryFromConfig(ctx context.Context, cfg ProvidersConfig, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// The gateway context is the primary bound; this one catches stuck body reads.
	httpClient := &http.Client{Timeout: timeout + 5*time.Second}

	var clients []Client
	for _, name := range cfg.Order() {
		pc, ok := cfg.Lookup(name)
		if !ok || !pc.IsEnabled() {
			continue
		}
		if pc.APIKey == "" {
			logger.Debug("provider skipped: no credentials", "provider", name)
			continue
		}

		client, err := factories[name](ctx, pc, httpClient)
		if err != nil {
			logger.WithError(err).Warn("provider skipped: construction failed", "provider", name)
			continue
		}
		clients = append(clients, client)
	}

	if len(clients) == 0 {
		logger.Info("no LLM providers configured; plans will use the deterministic fallback")
	}

	return &Registry{clients: clients}
}

// Available returns the providers in fallback order. The slice is a copy.
func (r *Registry) Available() []Client {
	if r == nil {
		return nil
	}
	return append([]Client(nil), r.clients...)
}

// Any reports whether at least one provider is registered.
func (r *Registry) Any() bool {
	return r != nil && len(r.clients) > 0
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.clients)
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Client, error) {
	for _, c := range r.Available() {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, errors.New(errors.ErrCodeProviderNotFound, fmt.Sprintf("provider %s not found", name)).
		WithSuggestion(fmt.Sprintf("Set the API key for %s or enable it in taskplanner.yaml", name))
}

// Describe lists the registered providers in order.
func (r *Registry) Describe() []Info {
	clients := r.Available()
	out := make([]Info, 0, len(clients))
	for _, c := range clients {
		out = append(out, Info{Name: c.Name(), Model: c.Model()})
	}
	return out
}
