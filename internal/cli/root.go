// Package cli implements the latprobe command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/latprobe/internal/output"
)

var version = "0.1.0"

// NewRootCmd builds the command tree. Running the root command without a
// subcommand behaves like "latprobe run".
func NewRootCmd() *cobra.Command {
	runCmd := newRunCmd()

	rootCmd := &cobra.Command{
		Use:     "latprobe [urls...]",
		Short:   "Measure HTTP endpoint latency",
		Version: version,
		Long: `latprobe measures the response latency of one or more HTTP endpoints.
Every endpoint is probed a fixed number of times under a process-wide
concurrency limit, and per-request and per-endpoint statistics are written
to CSV (and optionally JSON and Prometheus textfile) reports.`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runCmd.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addRunFlags(rootCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newValidateCmd())

	return rootCmd
}

// Execute runs the command tree until completion or an interrupt signal.
// This is called by main.main().
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		output.NewConsole(os.Stderr, output.ColorsDisabled(os.Stderr, false), false).Error(err)
		return err
	}
	return nil
}
