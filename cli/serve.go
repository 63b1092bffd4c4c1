package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cli/browser"
	"github.com/spf13/cobra"
)

func buildServeCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analytics dashboard",
		Long: `Start the HTTP server for the analytics dashboard.

The server will:
1. Load configuration from the YAML file and environment
2. Open the settings store and the optional postgres cache
3. Serve the dashboard until interrupted`,
		Example: `  # Start with defaults
  fitdash serve

  # Start and open the dashboard in a browser
  fitdash serve --config fitdash.yaml --open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), open)
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "Open the dashboard in the default browser")
	return cmd
}

func runServe(ctx context.Context, open bool) error {
	cfg, logger, logCloser, err := setup()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	for _, line := range cfg.Summary() {
		logger.Info("Configuration", "setting", line)
	}

	app, err := Build(cfg, logger, "")
	if err != nil {
		return err
	}
	defer app.Close()

	app.Janitor.Start()
	defer app.Janitor.Stop()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if open {
		go func() {
			time.Sleep(500 * time.Millisecond)
			url := pageURL(cfg.Server)
			if err := browser.OpenURL(url); err != nil {
				logger.Warn("Failed to open browser", "url", url, "error", err)
			}
		}()
	}

	return app.Server().Run(ctx)
}
