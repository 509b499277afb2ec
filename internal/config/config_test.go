package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
)

const testProject = "ee-test-project"

// chdirTemp isolates each test from any .env file in the package directory.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EE_PROJECT", testProject)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testProject, cfg.EEProject)
	assert.Equal(t, "https://earthengine.googleapis.com", cfg.EEBaseURL)
	assert.Empty(t, cfg.EEAccessToken)
	assert.Equal(t, 60*time.Second, cfg.EETimeout)
	assert.Equal(t, 4, cfg.EEConcurrency)
	assert.Equal(t, 1, cfg.EEYearsPerRequest)
	assert.Equal(t, domain.DefaultStudy(), cfg.Study)
	assert.True(t, cfg.ExportEnabled)
	assert.Empty(t, cfg.ExportDriveFolder)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "era5-monthly-temperature", cfg.KafkaTopic)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.PushgatewayURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 512, cfg.TileCacheSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EE_PROJECT", testProject)
	t.Setenv("EE_BASE_URL", "http://localhost:9999/")
	t.Setenv("EE_ACCESS_TOKEN", "ya29.token")
	t.Setenv("EE_TIMEOUT", "2m")
	t.Setenv("EE_CONCURRENCY", "8")
	t.Setenv("EE_YEARS_PER_REQUEST", "5")
	t.Setenv("REGION_ASSET", "projects/other/assets/park")
	t.Setenv("START_YEAR", "2010")
	t.Setenv("END_YEAR", "2012")
	t.Setenv("EXPORT_ENABLED", "false")
	t.Setenv("EXPORT_DRIVE_FOLDER", "era5")
	t.Setenv("OUTPUT_DIR", "/tmp/era5")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("TILE_CACHE_SIZE", "64")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.EEBaseURL)
	assert.Equal(t, "ya29.token", cfg.EEAccessToken)
	assert.Equal(t, 2*time.Minute, cfg.EETimeout)
	assert.Equal(t, 8, cfg.EEConcurrency)
	assert.Equal(t, 5, cfg.EEYearsPerRequest)
	assert.Equal(t, "projects/other/assets/park", cfg.Study.AssetID)
	assert.Equal(t, 2010, cfg.Study.StartYear)
	assert.Equal(t, 2012, cfg.Study.EndYear)
	assert.False(t, cfg.ExportEnabled)
	assert.Equal(t, "era5", cfg.ExportDriveFolder)
	assert.Equal(t, "/tmp/era5", cfg.OutputDir)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 64, cfg.TileCacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_MissingProject(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EE_PROJECT", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EE_PROJECT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"EE_TIMEOUT", "bad"},
		{"EE_TIMEOUT", "-1s"},
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"EE_CONCURRENCY", "0"},
		{"EE_CONCURRENCY", "1000"},
		{"EE_YEARS_PER_REQUEST", "x"},
		{"TILE_CACHE_SIZE", "-5"},
		{"START_YEAR", "two thousand"},
		{"START_YEAR", "1900"},
		{"END_YEAR", "1999"},
		{"LOG_FORMAT", "xml"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv("EE_PROJECT", testProject)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EE_PROJECT", testProject)
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EE_PROJECT", testProject)
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EE_PROJECT=from-dotenv\nOUTPUT_DIR=dotenv-out\n"), 0o600))
	t.Setenv("EE_PROJECT", "")
	t.Setenv("OUTPUT_DIR", "from-env")
	// t.Setenv registers a restore; unset so godotenv may fill EE_PROJECT.
	require.NoError(t, os.Unsetenv("EE_PROJECT"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.EEProject)
	assert.Equal(t, "from-env", cfg.OutputDir, "process env wins over .env")
}

func TestLoad_StudyFile(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("EE_PROJECT", testProject)

	path := filepath.Join(dir, "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
asset_id: projects/demo/assets/reserve
start_year: 2005
end_year: 2006
scale_meters: 5000
visualization:
  min: 0
  max: 40
  palette: ["0000ff", "ff0000"]
view:
  lon: -60.5
  lat: -3.1
  zoom: 8
`), 0o600))
	t.Setenv("STUDY_FILE", path)
	t.Setenv("END_YEAR", "2007")

	cfg, err := Load()
	require.NoError(t, err)

	s := cfg.Study
	assert.Equal(t, "projects/demo/assets/reserve", s.AssetID)
	assert.Equal(t, 2005, s.StartYear)
	assert.Equal(t, 2007, s.EndYear, "env overrides the study file")
	assert.Equal(t, 5000.0, s.ScaleMeters)
	assert.Equal(t, []string{"0000ff", "ff0000"}, s.Visualization.Palette)
	assert.Equal(t, domain.MapView{Lon: -60.5, Lat: -3.1, Zoom: 8}, s.View)
	// Untouched keys keep their defaults.
	assert.Equal(t, domain.DefaultBand, s.Band)
	assert.Equal(t, domain.DefaultLayerName, s.LayerName)
}

func TestLoad_StudyFileErrors(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("EE_PROJECT", testProject)

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("STUDY_FILE", filepath.Join(dir, "nope.yaml"))
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STUDY_FILE")
	})

	t.Run("invalid visualization", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("visualization:\n  min: 10\n  max: 5\n"), 0o600))
		t.Setenv("STUDY_FILE", path)
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "min")
	})
}
