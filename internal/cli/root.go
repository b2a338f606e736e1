package cli

import (
	"github.com/spf13/cobra"
)

// Execute builds and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the collector command tree.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile  string
		logLevel string
		logFile  string
	)

	rootCmd := &cobra.Command{
		Use:   "collector",
		Short: "A log collector that tails validated file inputs",
		Long: `collector tails log files and writes every record to stdout.

Each file input is validated before it is started: the charset must be known,
reader buffer size and interval must be positive, and PATTERN splitting needs
a pattern that compiles. An unreadable input directory is only a warning.

Hot-reload: When a config file is specified, changes are validated and applied
without requiring a restart. Rejected changes keep the running inputs.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write agent logs to a rotated file instead of stderr")

	rootCmd.AddCommand(
		NewRunCmd(&cfgFile, &logLevel, &logFile),
		NewValidateCmd(&cfgFile),
		NewVersionCmd(),
	)

	return rootCmd
}
