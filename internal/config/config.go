package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Earth Engine REST API.
	EEProject         string
	EEBaseURL         string
	EEAccessToken     string
	EETimeout         time.Duration
	EEConcurrency     int
	EEYearsPerRequest int

	Study domain.Study

	ExportEnabled     bool
	ExportDriveFolder string
	OutputDir         string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	PushgatewayURL  string
	HTTPAddr        string
	TileCacheSize   int
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	eeTimeout, err := parseDuration("EE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	concurrency, err := parsePositiveInt("EE_CONCURRENCY", 4, 64)
	if err != nil {
		return nil, err
	}
	yearsPerRequest, err := parsePositiveInt("EE_YEARS_PER_REQUEST", 1, 50)
	if err != nil {
		return nil, err
	}
	tileCacheSize, err := parsePositiveInt("TILE_CACHE_SIZE", 512, 1<<20)
	if err != nil {
		return nil, err
	}

	study, err := loadStudy()
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		EEProject:         os.Getenv("EE_PROJECT"),
		EEBaseURL:         strings.TrimRight(envOrDefault("EE_BASE_URL", "https://earthengine.googleapis.com"), "/"),
		EEAccessToken:     os.Getenv("EE_ACCESS_TOKEN"),
		EETimeout:         eeTimeout,
		EEConcurrency:     concurrency,
		EEYearsPerRequest: yearsPerRequest,

		Study: study,

		ExportEnabled:     envOrDefault("EXPORT_ENABLED", "true") == "true",
		ExportDriveFolder: os.Getenv("EXPORT_DRIVE_FOLDER"),
		OutputDir:         envOrDefault("OUTPUT_DIR", "out"),

		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "era5-monthly-temperature"),
		KafkaEnabled: kafkaEnabled,

		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		TileCacheSize:   tileCacheSize,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.EEProject == "" {
		return nil, errors.New("EE_PROJECT is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (allowed: json, text)", cfg.LogFormat)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback, maxValue int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxValue {
		return 0, fmt.Errorf("invalid %s %q (must be 1-%d)", key, s, maxValue)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
