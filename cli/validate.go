package cli

import (
	"fmt"

	"github.com/fitdash/config"
	"github.com/spf13/cobra"
)

func buildValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Check the configuration and print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration is valid")
			for _, line := range cfg.Summary() {
				fmt.Fprintln(out, "  "+line)
			}
			return nil
		},
	}
}
