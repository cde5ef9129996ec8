package telemetry

import (
	"fmt"
)

// Config holds tracing settings. ServiceName and ServiceVersion are filled
// in by the binary, the rest comes from the tracing section of the config file.
type Config struct {
	ServiceName    string `yaml:"-"`
	ServiceVersion string `yaml:"-"`

	// Environment is recorded as deployment.environment on the resource.
	Environment string `yaml:"environment"`

	// Enabled switches between the SDK provider and a noop provider.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/HTTP collector host:port. Empty keeps spans in process.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards Endpoint.
	Insecure bool `yaml:"insecure"`

	// SampleRate is the fraction of root spans sampled, in [0, 1].
	SampleRate float64 `yaml:"sample_rate"`
}

// DefaultConfig has tracing disabled, which suits the CLI.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "taskplanner",
		ServiceVersion: "dev",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// Validate checks the sample rate.
func (c Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1], got %v", c.SampleRate)
	}
	return nil
}
