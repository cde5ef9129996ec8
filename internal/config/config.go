// Package config loads taskplanner.yaml and overlays the environment.
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/plancache"
	"github.com/felixgeelhaar/taskplanner/internal/planner"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
	"github.com/felixgeelhaar/taskplanner/internal/server"
	"github.com/felixgeelhaar/taskplanner/internal/telemetry"
)

// DefaultPath is read when no path is given. Its absence is not an error.
const DefaultPath = "taskplanner.yaml"

// LogConfig is the log section.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// Config is the whole application configuration. Provider settings sit at
// the top level of the file (providers, preference, timeout).
type Config struct {
	provider.ProvidersConfig `yaml:",inline"`

	Planner planner.Config   `yaml:"planner"`
	Log     LogConfig        `yaml:"log"`
	Cache   plancache.Config `yaml:"cache"`
	Server  server.Config    `yaml:"server"`
	Tracing telemetry.Config `yaml:"tracing"`
}

// Default returns the configuration used when no file exists and no
// variables are set: every provider known but keyless, so plans come from
// the fallback planner.
func Default() Config {
	return Config{
		ProvidersConfig: provider.DefaultProvidersConfig(),
		Planner:         planner.DefaultConfig(),
		Log:             LogConfig{Level: "info", Format: "text"},
		Cache:           plancache.DefaultConfig(),
		Server:          server.DefaultConfig(),
		Tracing:         telemetry.DefaultConfig(),
	}
}

// Load reads path (DefaultPath when empty), expands ${VAR} references with
// getenv, applies environment overrides and validates the result. getenv is
// usually os.Getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg, getenv); err != nil {
			return nil, errors.NewConfigParseError(path, err)
		}
	case stderrors.Is(err, fs.ErrNotExist) && !explicit:
		// running on defaults and environment only
	default:
		return nil, errors.Wrap(errors.ErrCodeConfigRead, fmt.Sprintf("failed to read configuration file: %s", path), err).
			WithSuggestion("Check the --config path and file permissions")
	}

	cfg.applyEnv(getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(data []byte, cfg *Config, getenv func(string) string) error {
	expanded := os.Expand(string(data), getenv)

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	c.ProvidersConfig.ApplyEnv(getenv)

	if v := strings.TrimSpace(getenv("TASKPLANNER_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(getenv("TASKPLANNER_LOG_FORMAT")); v != "" {
		c.Log.Format = v
	}
	if v := strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" && c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = strings.TrimPrefix(strings.TrimPrefix(v, "https://"), "http://")
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ProvidersConfig.Validate(); err != nil {
		return err
	}
	if err := c.Planner.Validate(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NewConfigInvalidError(err.Error())
	}
	if _, err := log.ParseFormat(c.Log.Format); err != nil {
		return errors.NewConfigInvalidError(err.Error())
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Tracing.Validate(); err != nil {
		return errors.NewConfigInvalidError(err.Error())
	}
	return nil
}

// LoggerConfig builds the log.Config for this configuration. Flags passed as
// non-empty level or format override the file.
func (c *Config) LoggerConfig(level, format string, out io.Writer) (log.Config, error) {
	if level == "" {
		level = c.Log.Level
	}
	if format == "" {
		format = c.Log.Format
	}

	lc := log.DefaultConfig()
	var err error
	if lc.Level, err = log.ParseLevel(level); err != nil {
		return lc, errors.NewConfigInvalidError(err.Error())
	}
	if lc.Format, err = log.ParseFormat(format); err != nil {
		return lc, errors.NewConfigInvalidError(err.Error())
	}
	lc.AddSource = c.Log.AddSource
	if out != nil {
		lc.Output = out
	}
	return lc, nil
}
