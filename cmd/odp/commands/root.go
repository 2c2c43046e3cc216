package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	basePath   string
	configFile string
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "odp",
		Short: "opendatago - datapackage execution engine",
		Long: `opendatago orchestrates containerized data-processing steps over a
datapackage: a directory of versioned tabular resources, run configurations,
views and reusable column formats.

A datapackage run executes the algorithm container named by a configuration;
a view render executes the container named by a view once all its resources
are populated. Every execution is synchronous and its logs are captured.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&basePath, "path", "p", ".", "datapackage base path")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "CLI config file path (default opendatago.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newViewCommand())
	rootCmd.AddCommand(newResourceCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
