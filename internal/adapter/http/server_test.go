package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/era5-temperature-etl/internal/adapter/http"
	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
	"github.com/couchcryptid/era5-temperature-etl/internal/report"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockArtifacts struct {
	a  report.Artifacts
	ok bool
}

func (m *mockArtifacts) Artifacts() (report.Artifacts, bool) { return m.a, m.ok }

type mockTiles struct {
	calls []string
	err   error
}

func (m *mockTiles) FetchTile(_ context.Context, mapName string, z, x, y int) ([]byte, error) {
	m.calls = append(m.calls, fmt.Sprintf("%s/%d/%d/%d", mapName, z, x, y))
	if m.err != nil {
		return nil, m.err
	}
	return []byte("png-tile"), nil
}

func sampleArtifacts() report.Artifacts {
	study := domain.DefaultStudy()
	return report.Artifacts{
		CSVName:  report.CSVFileName(study.ExportDescription),
		CSV:      []byte("year,month,temperature\n2000,1,25.5\n"),
		ChartPNG: []byte("png-chart"),
		Layer: &domain.MapLayer{
			Name:          study.LayerName,
			MapID:         "projects/p/maps/m1",
			View:          study.View,
			Visualization: study.Visualization,
		},
		Summary: domain.RunSummary{RunID: "run-1", Records: 1},
	}
}

func newTestServer(readyErr error, artifacts *mockArtifacts, tiles *mockTiles) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, artifacts, tiles,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, &mockArtifacts{}, &mockTiles{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil, &mockArtifacts{}, &mockTiles{}), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(fmt.Errorf("not ready yet"), &mockArtifacts{}, &mockTiles{}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, &mockArtifacts{}, &mockTiles{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestArtifactRoutes_BeforeFirstRun(t *testing.T) {
	srv := newTestServer(nil, &mockArtifacts{}, &mockTiles{})
	for _, path := range []string{"/", "/table.csv", "/chart.png", "/layer.json", "/summary.json", "/tiles/1/2/3"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusServiceUnavailable, serve(srv, path).Code)
		})
	}
}

func TestTableCSV(t *testing.T) {
	rec := serve(newTestServer(nil, &mockArtifacts{a: sampleArtifacts(), ok: true}, &mockTiles{}), "/table.csv")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Monthly_Mean_Temperature_2000_2022_Celsius.csv")
	assert.Equal(t, "year,month,temperature\n2000,1,25.5\n", rec.Body.String())
}

func TestChartPNG(t *testing.T) {
	rec := serve(newTestServer(nil, &mockArtifacts{a: sampleArtifacts(), ok: true}, &mockTiles{}), "/chart.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-chart", rec.Body.String())

	a := sampleArtifacts()
	a.ChartPNG = nil
	rec = serve(newTestServer(nil, &mockArtifacts{a: a, ok: true}, &mockTiles{}), "/chart.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLayerJSON(t *testing.T) {
	rec := serve(newTestServer(nil, &mockArtifacts{a: sampleArtifacts(), ok: true}, &mockTiles{}), "/layer.json")

	assert.Equal(t, http.StatusOK, rec.Code)
	var layer domain.MapLayer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layer))
	assert.Equal(t, domain.DefaultLayerName, layer.Name)
	assert.Equal(t, domain.MapView{Lon: -55, Lat: -6, Zoom: 6}, layer.View)
	assert.Len(t, layer.Visualization.Palette, 18)
}

func TestSummaryJSON(t *testing.T) {
	rec := serve(newTestServer(nil, &mockArtifacts{a: sampleArtifacts(), ok: true}, &mockTiles{}), "/summary.json")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)
}

func TestTileProxy(t *testing.T) {
	tiles := &mockTiles{}
	rec := serve(newTestServer(nil, &mockArtifacts{a: sampleArtifacts(), ok: true}, tiles), "/tiles/6/21/33")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-tile", rec.Body.String())
	assert.Equal(t, []string{"projects/p/maps/m1/6/21/33"}, tiles.calls)
}

func TestTileProxy_BadCoordinates(t *testing.T) {
	tiles := &mockTiles{}
	srv := newTestServer(nil, &mockArtifacts{a: sampleArtifacts(), ok: true}, tiles)

	assert.Equal(t, http.StatusBadRequest, serve(srv, "/tiles/a/1/2").Code)
	assert.Equal(t, http.StatusBadRequest, serve(srv, "/tiles/1/-1/2").Code)
	assert.Empty(t, tiles.calls)
}

func TestTileProxy_UpstreamError(t *testing.T) {
	tiles := &mockTiles{err: errors.New("upstream 500")}
	rec := serve(newTestServer(nil, &mockArtifacts{a: sampleArtifacts(), ok: true}, tiles), "/tiles/1/1/1")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestIndexPage(t *testing.T) {
	rec := serve(newTestServer(nil, &mockArtifacts{a: sampleArtifacts(), ok: true}, &mockTiles{}), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Overall Mean Temperature (2000-2022) in °C")
	assert.Contains(t, body, "L.map('map').setView(")
	assert.Contains(t, body, "-55")
	assert.Contains(t, body, "/tiles/{z}/{x}/{y}")
	assert.Contains(t, body, "background:#000080")
	assert.Contains(t, body, "-23.15 to 46.85")
}
