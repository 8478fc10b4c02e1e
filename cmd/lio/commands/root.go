// Package commands implements the lio CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lio",
		Short: "Lio - LINE personal assistant",
		Long: `Lio is a personal assistant that lives in LINE. It keeps tasks,
schedules reminders, remembers facts about you, and answers with text,
voice, and images.

Examples:
  lio serve
  lio serve --config ./config.yaml`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
