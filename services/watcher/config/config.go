package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultRefreshInterval   = 15 * time.Minute
	defaultRequestTimeout    = 10 * time.Second
	defaultMeasurementWindow = 24 * time.Hour
	defaultMetricsAddr       = ":9091"
	defaultWorkers           = 4
)

// Config holds runtime configuration for the watcher daemon.
type Config struct {
	StoreDriver string // "postgres" or "file"
	DatabaseURL string
	StorePath   string

	APIBaseURL     string
	GeocodeBaseURL string
	RequestTimeout time.Duration

	RefreshInterval   time.Duration
	MeasurementWindow time.Duration
	WatchStations     []int
	Workers           int

	MetricsAddr string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		StoreDriver:       "postgres",
		RequestTimeout:    defaultRequestTimeout,
		RefreshInterval:   defaultRefreshInterval,
		MeasurementWindow: defaultMeasurementWindow,
		MetricsAddr:       defaultMetricsAddr,
		Workers:           defaultWorkers,
	}

	if v := strings.TrimSpace(os.Getenv("STORE_DRIVER")); v != "" {
		cfg.StoreDriver = v
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.StorePath = strings.TrimSpace(os.Getenv("STORE_PATH"))

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return cfg, errors.New("DATABASE_URL is required for the postgres store")
		}
	case "file":
		if cfg.StorePath == "" {
			return cfg, errors.New("STORE_PATH is required for the file store")
		}
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER: %s", cfg.StoreDriver)
	}

	cfg.APIBaseURL = strings.TrimSpace(os.Getenv("GIOS_BASE_URL"))
	cfg.GeocodeBaseURL = strings.TrimSpace(os.Getenv("GEOCODE_BASE_URL"))

	if v := strings.TrimSpace(os.Getenv("WATCHER_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("WATCHER_REFRESH_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_REFRESH_INTERVAL: %w", err)
		}
		cfg.RefreshInterval = d
	}

	if v := strings.TrimSpace(os.Getenv("WATCHER_MEASUREMENT_WINDOW")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_MEASUREMENT_WINDOW: %w", err)
		}
		cfg.MeasurementWindow = d
	}

	if v := strings.TrimSpace(os.Getenv("WATCH_STATIONS")); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return cfg, fmt.Errorf("invalid WATCH_STATIONS entry: %s", part)
			}
			cfg.WatchStations = append(cfg.WatchStations, id)
		}
	}

	if v := strings.TrimSpace(os.Getenv("WATCHER_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid WATCHER_WORKERS: %s", v)
		}
		cfg.Workers = n
	}

	if v := strings.TrimSpace(os.Getenv("METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}

	return cfg, nil
}
