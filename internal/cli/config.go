package cli

import (
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/kickoff-wellness/kickoff/internal/daemon"
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Write the effective config to the config file")
	rootCmd.AddCommand(configCmd, versionCmd)
}

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file, .env files
and environment variables have been applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configInit {
			if err := daemon.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", daemon.ConfigPath())
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", daemon.ConfigPath())
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kickoff version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "kickoff %s (%s, %s/%s)\n",
			rootCmd.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}
