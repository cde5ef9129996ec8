package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskplanner/internal/health"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and provider availability",
	Long: `Check that configuration loads and report which providers are usable.

With --ping every configured provider is sent a one-word request, which
verifies credentials and connectivity but costs a call per provider.
--provider pings only the named provider.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var (
	doctorPing     bool
	doctorJSON     bool
	doctorProvider string
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorPing, "ping", false, "send a test request to each provider")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output as JSON")
	doctorCmd.Flags().StringVar(&doctorProvider, "provider", "", "ping only this provider")

	rootCmd.AddCommand(doctorCmd)
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := log.DefaultLogger()

	registry := provider.NewRegistryFromConfig(ctx, appConfig.ProvidersConfig, logger)
	gateway := provider.NewGateway(provider.WithTimeout(appConfig.Timeout), provider.WithGatewayLogger(logger))

	m := health.NewManager().WithTimeout(appConfig.Timeout + health.DefaultCheckTimeout)
	if err := addDoctorChecks(m, registry, gateway, doctorPing, doctorProvider); err != nil {
		return err
	}

	return writeDoctor(ctx, cmd.OutOrStdout(), m, doctorJSON)
}

// addDoctorChecks registers the provider check plus ping checks: one per
// provider with ping, or only the named one when only is set.
func addDoctorChecks(m *health.Manager, registry *provider.Registry, gateway *provider.Gateway, ping bool, only string) error {
	m.AddChecker(health.NewProviderChecker(registry))

	if only != "" {
		c, err := registry.Get(only)
		if err != nil {
			return err
		}
		m.AddChecker(health.NewPingChecker(c, gateway))
		return nil
	}
	if ping {
		for _, c := range registry.Available() {
			m.AddChecker(health.NewPingChecker(c, gateway))
		}
	}
	return nil
}

func writeDoctor(ctx context.Context, w io.Writer, m *health.Manager, asJSON bool) error {
	results := m.Check(ctx)
	overall := health.OverallStatus(results)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Status health.Status             `json:"status"`
			Checks map[string]*health.Result `json:"checks"`
		}{overall, results})
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := results[name]
		if _, err := fmt.Fprintf(w, "%s %-20s %s\n", statusMark(r.Status), name, r.Message); err != nil {
			return err
		}
	}

	if overall == health.StatusUnhealthy {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}

func statusMark(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return okStyle.Render("ok  ")
	case health.StatusDegraded:
		return warnStyle.Render("warn")
	default:
		return failStyle.Render("fail")
	}
}
