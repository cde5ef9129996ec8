package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskplanner/internal/config"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "taskplanner",
	Short: "Turn a goal into an ordered, dependency-aware task plan",
	Long: `taskplanner breaks a free-text goal into a list of tasks using an LLM.

Each plan is produced in two stages: a short list of task titles is drafted,
then every task is elaborated with a description, duration, phase, priority
and dependencies on earlier tasks. Providers (OpenAI, Anthropic, Gemini) are
tried in order; when none are configured or all fail, a deterministic plan is
returned instead.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

var (
	configPath string
	logLevel   string
	logFormat  string

	// appConfig is populated by loadConfig before any subcommand runs.
	appConfig *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is ./"+config.DefaultPath+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which subcommands use for cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		return err
	}

	// serve logs JSON unless told otherwise
	format := logFormat
	if format == "" && cmd.Name() == "serve" && os.Getenv("TASKPLANNER_LOG_FORMAT") == "" {
		format = "json"
	}

	lc, err := cfg.LoggerConfig(logLevel, format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	lc.ServiceVersion = version.GetInfo().Version
	log.SetDefaultLogger(log.New(lc))

	appConfig = cfg
	return nil
}
