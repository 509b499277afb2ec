package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/era5-temperature-etl/internal/report"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ArtifactSource returns the output of the most recent run.
type ArtifactSource interface {
	Artifacts() (report.Artifacts, bool)
}

// TileSource fetches rendered map tiles.
type TileSource interface {
	FetchTile(ctx context.Context, mapName string, z, x, y int) ([]byte, error)
}

// Server exposes health, readiness, metrics, and the run artifacts over HTTP.
type Server struct {
	httpServer *http.Server
	artifacts  ArtifactSource
	tiles      TileSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the health, metrics, artifact, tile,
// and map page routes.
func NewServer(addr string, ready ReadinessChecker, artifacts ArtifactSource, tiles TileSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		artifacts: artifacts,
		tiles:     tiles,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /table.csv", s.handleTable)
	mux.HandleFunc("GET /chart.png", s.handleChart)
	mux.HandleFunc("GET /layer.json", s.handleLayer)
	mux.HandleFunc("GET /summary.json", s.handleSummary)
	mux.HandleFunc("GET /tiles/{z}/{x}/{y}", s.handleTile)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// latest writes 503 and returns false while no run has finished.
func (s *Server) latest(w http.ResponseWriter) (report.Artifacts, bool) {
	a, ok := s.artifacts.Artifacts()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no completed run yet"})
	}
	return a, ok
}

func (s *Server) handleTable(w http.ResponseWriter, _ *http.Request) {
	a, ok := s.latest(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.CSVName+`"`)
	_, _ = w.Write(a.CSV)
}

func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	a, ok := s.latest(w)
	if !ok {
		return
	}
	if len(a.ChartPNG) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no month has a temperature"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(a.ChartPNG)
}

func (s *Server) handleLayer(w http.ResponseWriter, _ *http.Request) {
	a, ok := s.latest(w)
	if !ok {
		return
	}
	if a.Layer == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no map layer"})
		return
	}
	writeJSON(w, http.StatusOK, a.Layer)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	a, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.Summary)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, errZ := strconv.Atoi(r.PathValue("z"))
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	if err := errors.Join(errZ, errX, errY); err != nil || z < 0 || x < 0 || y < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tile coordinates"})
		return
	}

	a, ok := s.latest(w)
	if !ok {
		return
	}
	if a.Layer == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no map layer"})
		return
	}

	tile, err := s.tiles.FetchTile(r.Context(), a.Layer.MapID, z, x, y)
	if err != nil {
		s.logger.Warn("tile fetch failed", "z", z, "x", x, "y", y, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "tile fetch failed"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(tile)
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
body { margin: 0; font-family: sans-serif; }
#map { height: 70vh; }
.legend { padding: 8px 12px; }
.ramp { display: flex; height: 12px; width: 360px; }
.ramp span { flex: 1; }
</style>
</head>
<body>
<div id="map"></div>
<div class="legend">
<strong>{{.Name}}</strong>
<div class="ramp">{{range .Visualization.Palette}}<span style="background:#{{.}}"></span>{{end}}</div>
<div>{{printf "%.2f" .Visualization.Min}} to {{printf "%.2f" .Visualization.Max}} °C</div>
</div>
<img src="/chart.png" alt="Monthly mean temperature" style="max-width:100%">
<script>
var map = L.map('map').setView([{{.View.Lat}}, {{.View.Lon}}], {{.View.Zoom}});
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {attribution: '&copy; OpenStreetMap contributors'}).addTo(map);
L.tileLayer('/tiles/{z}/{x}/{y}', {opacity: 0.8}).addTo(map);
</script>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	a, ok := s.latest(w)
	if !ok {
		return
	}
	if a.Layer == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no map layer"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, a.Layer); err != nil {
		s.logger.Warn("render index failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
