package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/taskplanner/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after taskplanner.yaml and the environment have
been merged. API keys are redacted.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(redacted(appConfig)); err != nil {
		return err
	}
	return enc.Close()
}

// redacted returns a copy of cfg with credentials masked.
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	out.Providers = append(out.Providers[:0:0], cfg.Providers...)
	for i := range out.Providers {
		if key := out.Providers[i].APIKey; key != "" {
			out.Providers[i].APIKey = mask(key)
		}
	}
	return out
}

func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-2:]
}
