package provider

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
)

// Default models used when neither configuration nor environment names one.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-haiku-20240307"
	DefaultGeminiModel    = "gemini-1.5-flash"
)

// DefaultOrder is the fallback priority used when no preference is configured.
var DefaultOrder = []string{"openai", "anthropic", "gemini"}

// ProviderConfig configures one provider adapter.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`

	// Enabled defaults to true; set false to keep a provider out of the registry
	// even when a key is present.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the provider may be registered.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// ProvidersConfig is the `providers` section of taskplanner.yaml.
type ProvidersConfig struct {
	Providers []ProviderConfig `yaml:"providers"`

	// Preference moves the named providers to the front of the fallback order.
	Preference []string `yaml:"preference,omitempty"`

	// Timeout bounds each provider call.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// DefaultProvidersConfig returns all known providers with default models and no keys.
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		Providers: []ProviderConfig{
			{Name: "openai", Model: DefaultOpenAIModel},
			{Name: "anthropic", Model: DefaultAnthropicModel},
			{Name: "gemini", Model: DefaultGeminiModel},
		},
		Timeout: DefaultTimeout,
	}
}

// Lookup returns the entry for name, if configured.
func (c *ProvidersConfig) Lookup(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

func (c *ProvidersConfig) upsert(p ProviderConfig) {
	for i := range c.Providers {
		if c.Providers[i].Name == p.Name {
			c.Providers[i] = p
			return
		}
	}
	c.Providers = append(c.Providers, p)
}

// envKeys lists the credential variables per provider, first match wins.
var envKeys = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

var envModels = map[string]string{
	"openai":    "LLM_OPENAI_MODEL",
	"anthropic": "LLM_ANTHROPIC_MODEL",
	"gemini":    "LLM_GEMINI_MODEL",
}

// ApplyEnv overlays credentials, model overrides and the primary/secondary
// preference from the environment. getenv is usually os.Getenv.
// Values already present in the file win over credentials from the environment;
// model and preference variables override the file.
func (c *ProvidersConfig) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	for _, name := range DefaultOrder {
		p, ok := c.Lookup(name)
		if !ok {
			p = ProviderConfig{Name: name}
		}

		if p.APIKey == "" {
			for _, key := range envKeys[name] {
				if v := strings.TrimSpace(getenv(key)); v != "" {
					p.APIKey = v
					break
				}
			}
		}

		if v := strings.TrimSpace(getenv(envModels[name])); v != "" {
			p.Model = v
		}

		c.upsert(p)
	}

	var pref []string
	for _, key := range []string{"LLM_PRIMARY_PROVIDER", "LLM_SECONDARY_PROVIDER"} {
		if v := strings.ToLower(strings.TrimSpace(getenv(key))); v != "" && !slices.Contains(pref, v) {
			pref = append(pref, v)
		}
	}
	if len(pref) > 0 {
		c.Preference = pref
	}
}

// Validate rejects unknown provider names, duplicates and negative timeouts.
// Missing credentials are valid: the engine then runs in fallback mode.
func (c *ProvidersConfig) Validate() error {
	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			return errors.NewConfigInvalidError(fmt.Sprintf("providers[%d]: name is required", i))
		}
		if !slices.Contains(DefaultOrder, p.Name) {
			return errors.NewConfigInvalidError(fmt.Sprintf("providers[%d]: unknown provider %q", i, p.Name)).
				WithSuggestion("Supported providers: " + strings.Join(DefaultOrder, ", "))
		}
		if seen[p.Name] {
			return errors.NewConfigInvalidError(fmt.Sprintf("provider %q configured twice", p.Name))
		}
		seen[p.Name] = true
	}

	for _, name := range c.Preference {
		if !slices.Contains(DefaultOrder, name) {
			return errors.NewConfigInvalidError(fmt.Sprintf("preference names unknown provider %q", name))
		}
	}

	if c.Timeout < 0 {
		return errors.NewConfigInvalidError("providers timeout must be non-negative")
	}

	return nil
}

// Order returns the provider names in fallback order: preferred names first,
// then the remaining defaults in their usual order.
func (c *ProvidersConfig) Order() []string {
	order := make([]string, 0, len(DefaultOrder))
	for _, name := range c.Preference {
		if slices.Contains(DefaultOrder, name) && !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	for _, name := range DefaultOrder {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	return order
}

// NormalizeGeminiModel strips routing prefixes such as "gemini/" and "models/".
func NormalizeGeminiModel(model string) string {
	model = strings.TrimSpace(model)
	for _, prefix := range []string{"gemini/", "models/"} {
		model = strings.TrimPrefix(model, prefix)
	}
	if model == "" {
		return DefaultGeminiModel
	}
	return model
}
