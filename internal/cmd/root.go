package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for rxharness
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rxharness",
		Short: "Test harness orchestration for the rx compiler toolchain",
		Long: `rxharness discovers .rx test cases, drives each one through the compiler
toolchain (IR lowering, assembly, emulation), judges the results against
fixtures, inline annotations, a promoted baseline or a remote verdict
oracle, and writes regression logs and failure reports.

Configuration is loaded from .rxharness/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// main prints the error once and maps it to an exit code
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .rxharness/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("log-dir", "", "Directory for run log files")
	cmd.PersistentFlags().String("test-root", "", "Directory containing the test sets")
	cmd.PersistentFlags().String("output-root", "", "Directory receiving run outputs")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Show per-stage debug output")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewVerdictCommand())
	cmd.AddCommand(NewRegressCommand())
	cmd.AddCommand(NewBaselineCommand())
	cmd.AddCommand(NewJudgeCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
