package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "irtcal",
		Short: "irtcal - two-parameter logistic item calibration",
		Long: `irtcal calibrates dichotomous test items under the two-parameter logistic
IRT model.

It estimates a discrimination and difficulty for every item with marginal
maximum likelihood (EM over a quadrature grid), then scores examinees on the
same ability scale.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newFitCommand())
	cmd.AddCommand(newDescribeCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newCacheCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
