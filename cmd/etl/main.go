// Command etl computes the regional monthly mean ERA5-Land 2 m temperature
// on Earth Engine and writes the table, chart, and map layer.
//
// Usage:
//
//	etl run                     # one-shot run, artifacts in OUTPUT_DIR
//	etl serve                   # run once, then serve artifacts, tiles, and metrics
//	etl export-status <op>      # look up an export task once
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/era5-temperature-etl/internal/adapter/earthengine"
	kafkaadapter "github.com/couchcryptid/era5-temperature-etl/internal/adapter/kafka"
	"github.com/couchcryptid/era5-temperature-etl/internal/config"
	"github.com/couchcryptid/era5-temperature-etl/internal/observability"
	"github.com/couchcryptid/era5-temperature-etl/internal/pipeline"
)

var outputDir string

var rootCmd = &cobra.Command{
	Use:           "etl",
	Short:         "ERA5-Land monthly mean temperature over a region",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Artifact directory (default: OUTPUT_DIR)")

	// Bare "etl" behaves like "etl run".
	rootCmd.RunE = runOnce
	rootCmd.Args = cobra.NoArgs

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportStatusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// app bundles the process-wide dependencies shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	ee      *earthengine.Client
	runID   string
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	runID := uuid.NewString()
	logger := observability.NewLogger(cfg).With("run_id", runID)
	metrics := observability.NewMetrics()

	httpClient, err := earthengine.NewHTTPClient(ctx, cfg.EEAccessToken, cfg.EETimeout)
	if err != nil {
		return nil, err
	}
	client := earthengine.NewClient(cfg.EEProject, cfg.EEBaseURL, httpClient, logger, metrics)

	return &app{cfg: cfg, logger: logger, metrics: metrics, ee: client, runID: runID}, nil
}

// newPipeline wires the pipeline and returns a close func for its sinks.
func (a *app) newPipeline() (*pipeline.Pipeline, func()) {
	cfg := a.cfg
	var (
		publisher pipeline.RecordPublisher
		closeFn   = func() {}
	)
	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, a.logger)
		publisher = w
		closeFn = func() {
			if err := w.Close(); err != nil {
				a.logger.Error("kafka writer close error", "error", err)
			}
		}
		a.logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	} else {
		a.logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(a.ee, publisher, pipeline.Options{
		Study:           cfg.Study,
		Concurrency:     cfg.EEConcurrency,
		YearsPerRequest: cfg.EEYearsPerRequest,
		ExportEnabled:   cfg.ExportEnabled,
		DriveFolder:     cfg.ExportDriveFolder,
	}, a.logger, a.metrics)
	return p, closeFn
}
