package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/latprobe/internal/latency/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Check a configuration file without probing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(args[0])
			if err != nil {
				return err
			}
			cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d target(s), %d samples each, timeout %s, concurrency %d\n",
				len(cfg.Targets), cfg.Samples, cfg.Timeout, cfg.Concurrency)
			return nil
		},
	}
}
