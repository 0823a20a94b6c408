// Package main provides the decent-ci command line.
// It discovers build candidates on GitHub, builds them and reports the
// results, and lets operators browse the results archive.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"decent-ci/src/config"
	"decent-ci/src/logger"
)

var (
	// Environment settings, loaded before any command runs.
	settings *config.Settings
	// Debug logging, also enabled by DECENT_CI_VERBOSE.
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "decent-ci",
	Short: "decent-ci - continuous integration for CMake projects on GitHub",
	Long: `decent-ci finds the releases, branches and pull requests of a GitHub
repository that have no results yet, builds each against every configured
toolchain and posts statuses, comments and a results document.

Mode is auto-detected based on the REDPANDA_BROKERS environment variable:
- Local Mode: in-memory events, results listed from memory (default)
- Distributed Mode: report events on Redpanda, results mirrored into
  Postgres when POSTGRES_DSN is set`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		load := config.LoadFromEnv
		if cmd.Annotations["token"] == "optional" {
			load = config.LoadViewerFromEnv
		}

		s, err := load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if verbose {
			s.Verbose = true
		}
		settings = s
		logger.SetDefault(logger.NewConsoleLogger(s.Verbose))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
