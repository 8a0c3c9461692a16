package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/occusim/pkg/log"
)

type globalFlags struct {
	logLevel  string
	logFormat string
}

func newRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "occusim",
		Short: "Simulate occurrence data and compare fitted probability curves",
		Long: `occusim draws noisy presence/absence observations from a fixed
ground-truth occurrence curve, fits polynomial GLMs, penalized-spline GAMs
and boosted trees to small and large observation sets, and reports how well
each fitted curve recovers the truth.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return log.SetupLoggerWithWriter(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", log.FormatConsole, "Log format: json or console")

	rootCmd.AddCommand(
		setupTruthCommand(),
		setupSampleCommand(),
		setupRunCommand(),
	)
	return rootCmd
}
