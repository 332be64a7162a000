// Package cli implements the kickoff command-line interface using Cobra.
// Each subcommand maps to one engine operation or catalog view.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kickoff-wellness/kickoff/internal/daemon"
	"github.com/kickoff-wellness/kickoff/internal/logger"
)

// cfg is loaded once per invocation, before any subcommand runs.
var cfg daemon.Config

var rootCmd = &cobra.Command{
	Use:   "kickoff",
	Short: "kickoff: points, levels and achievements for match-day routines",
	Long: `kickoff tracks wellness points for young players.
Activities and daily streaks unlock achievements; points raise the level.

Run 'kickoff serve' for the HTTP API, or use the commands below directly
against the configured store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := daemon.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
