package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskplanner/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
	Args: cobra.NoArgs,
	// no configuration needed
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runVersion,
}

var (
	versionVerbose bool
	versionJSON    bool
)

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "show detailed version information")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output version information as JSON")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := version.GetInfo()
	out := cmd.OutOrStdout()

	switch {
	case versionJSON:
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal version info: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case versionVerbose:
		_, err := fmt.Fprintln(out, info.String())
		return err
	default:
		_, err := fmt.Fprintf(out, "taskplanner %s\n", info.Version)
		return err
	}
}
