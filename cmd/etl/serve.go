package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/era5-temperature-etl/internal/adapter/earthengine"
	httpadapter "github.com/couchcryptid/era5-temperature-etl/internal/adapter/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline once, then serve the results over HTTP",
	Long: `Start the HTTP server, run the pipeline in the background, and serve
the table, chart, layer, proxied map tiles, and a map page until interrupted.
/readyz reports ready once the run has completed.`,
	Args: cobra.NoArgs,
	RunE: serve,
}

func serve(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	p, closeSinks := a.newPipeline()
	defer closeSinks()

	tiles := earthengine.NewCachedTiles(a.ee, a.cfg.TileCacheSize, a.metrics)
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, p, p, tiles, a.logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Run the pipeline once. A failed run shuts the server down.
	runErr := runInBackground(ctx, func(ctx context.Context) error {
		_, err := p.Run(ctx, a.runID)
		return err
	}, stop, a.logger)

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
	a.logger.Info("shutdown complete")

	select {
	case err := <-runErr:
		return err
	case <-shutdownCtx.Done():
		return nil
	}
}

// runInBackground starts run and calls stop if it fails before shutdown
// begins. The channel yields that failure, or nil.
func runInBackground(ctx context.Context, run func(context.Context) error, stop func(), logger *slog.Logger) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := run(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error("pipeline error", "error", err)
			done <- fmt.Errorf("pipeline run: %w", err)
			stop()
			return
		}
		done <- nil
	}()
	return done
}
