// Package cli is the fitdash command line: serve the dashboard, export it to
// a PNG, or check a configuration.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fitdash/config"
	"github.com/fitdash/logger"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

var configPath string

// Execute runs the root command
func Execute() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fitdash",
		Short: "Fitdash - fitness analytics dashboard",
		Long: `Fitdash shows fitness analytics for a selectable time span.

Data is read from the GraphQL query service set by BACKEND_URL.`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (default: fitdash.yaml if present)")

	rootCmd.AddCommand(
		buildServeCmd(),
		buildExportCmd(),
		buildValidateConfigCmd(),
	)
	return rootCmd
}

// setup loads configuration and installs the default logger
func setup() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log, closer, err := logger.Init(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, log, closer, nil
}
