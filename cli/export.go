package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fitdash/export"
	"github.com/fitdash/timespan"
	"github.com/spf13/cobra"
)

// cliClientID identifies exports started from the command line
const cliClientID = "cli"

type exportOptions struct {
	Range  string
	Start  string
	End    string
	Output string
}

// settings turns the flags into time span settings
func (o exportOptions) settings() (timespan.Settings, error) {
	if o.Start != "" || o.End != "" {
		return timespan.NewCustom(o.Start, o.End)
	}
	rng, err := timespan.ParseRange(o.Range)
	if err != nil {
		return timespan.Settings{}, err
	}
	if rng == timespan.Custom {
		return timespan.Settings{}, fmt.Errorf("--start and --end are required for a custom range")
	}
	return timespan.Default().WithRange(rng), nil
}

func buildExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dashboard to a PNG image",
		Long: `Fetch analytics for a time span and write the dashboard as one PNG.

Charts are drawn directly without a browser.`,
		Example: `  # Export the last 30 days
  fitdash export

  # Export a custom span to a chosen file
  fitdash export --start 2024-01-01 --end 2024-03-31 -o q1.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, logCloser, err := setup()
			if err != nil {
				return err
			}
			defer logCloser.Close()

			app, err := Build(cfg, logger, "render")
			if err != nil {
				return err
			}
			defer app.Close()

			path, size, err := runExport(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", path, humanize.Bytes(uint64(size)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Range, "range", "r", string(timespan.DefaultRange), "Named time range, e.g. \"Past 7 Days\"")
	cmd.Flags().StringVar(&opts.Start, "start", "", "Custom range start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.End, "end", "", "Custom range end date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file (default: fitness-analytics_<start>_<end>.png)")
	return cmd
}

// runExport captures the dashboard for opts and writes it to disk. It returns
// the written path and its size.
func runExport(ctx context.Context, app *App, opts exportOptions) (string, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := opts.settings()
	if err != nil {
		return "", 0, err
	}

	req := export.Request{
		ClientID: cliClientID,
		Range:    app.Clock.Resolve(s),
		Location: app.Clock.Zone(""),
	}
	data, err := app.Exporter.Export(ctx, req)
	if err != nil {
		return "", 0, err
	}

	path := opts.Output
	if path == "" {
		path = req.Filename()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	app.Logger.Info("Dashboard exported", "path", path, "start", req.Range.StartDate, "end", req.Range.EndDate)
	return path, len(data), nil
}
