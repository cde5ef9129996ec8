package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the providers that will be tried, in order",
	Long: `List the LLM providers that have credentials and are enabled, in the
order they are tried. Credentials come from taskplanner.yaml or from
OPENAI_API_KEY, ANTHROPIC_API_KEY and GEMINI_API_KEY.`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

var providersJSON bool

func init() {
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, _ []string) error {
	registry := provider.NewRegistryFromConfig(cmd.Context(), appConfig.ProvidersConfig, log.DefaultLogger())
	return writeProviders(cmd.OutOrStdout(), registry.Describe(), providersJSON)
}

func writeProviders(w io.Writer, infos []provider.Info, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Providers []provider.Info `json:"providers"`
			Fallback  bool            `json:"fallbackOnly"`
		}{infos, len(infos) == 0})
	}

	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "No providers configured; plans will use the deterministic fallback.\nSet OPENAI_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY to enable one.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tNAME\tMODEL") //nolint:errcheck
	for i, info := range infos {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, info.Name, info.Model) //nolint:errcheck
	}
	return tw.Flush()
}
