package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/era5-temperature-etl/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and write artifacts",
	Long: `Evaluate every month of the study on Earth Engine, enqueue the Drive
export, request the overall mean map layer, and write to the output directory:

  <export description>.csv
  monthly_mean_temperature.png
  overall_mean_layer.json
  summary.json`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func runOnce(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	p, closeSinks := a.newPipeline()
	defer closeSinks()
	defer a.pushMetrics()

	res, err := p.Run(ctx, a.runID)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	paths, err := report.WriteDir(a.cfg.OutputDir, res.Artifacts)
	if err != nil {
		return err
	}
	for _, path := range paths {
		a.logger.Info("artifact written", "path", path)
	}
	if res.Summary.Export != nil {
		a.logger.Info("export enqueued; check with export-status", "operation", res.Summary.Export.Name)
	}
	return nil
}

// pushMetrics sends run metrics to the Pushgateway when one is configured.
// Failures are logged, not returned, so they never mask the run outcome.
func (a *app) pushMetrics() {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.metrics.Push(ctx, a.cfg.PushgatewayURL, a.runID); err != nil {
		a.logger.Warn("metrics push failed", "error", err)
		return
	}
	a.logger.Info("metrics pushed", "url", a.cfg.PushgatewayURL)
}
