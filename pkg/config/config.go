package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Cache    CacheConfig    `yaml:"cache"`
	Demo     DemoConfig     `yaml:"demo"`
}

// DispatchConfig holds dispatcher settings.
type DispatchConfig struct {
	// Heartbeat is the period of the drain loop.
	Heartbeat Duration `yaml:"heartbeat"`
	// MaxRetries is the retry ceiling for failed lookups.
	MaxRetries int `yaml:"max_retries"`
	// FingerprintPrecision is the geohash length used as cache key.
	FingerprintPrecision int `yaml:"fingerprint_precision"`
}

// LookupConfig holds settings for the reverse-geocoding service.
type LookupConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	UserAgent string   `yaml:"user_agent"`
	Timeout   Duration `yaml:"timeout"`
	Zoom      int      `yaml:"zoom"`
}

// CacheConfig holds result cache settings. An empty path selects the
// in-memory cache.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// DemoConfig holds settings for the demonstration harness.
type DemoConfig struct {
	StartLat float64 `yaml:"start_lat"`
	StartLon float64 `yaml:"start_lon"`
	// Resolution is the H3 resolution of the sweep grid.
	Resolution int `yaml:"resolution"`
	// Rings is the grid disk radius (k) around the start cell.
	Rings int `yaml:"rings"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			Path:  "logs/geodispatch.log",
		},
		Dispatch: DispatchConfig{
			Heartbeat:            Duration(3 * time.Second),
			MaxRetries:           3,
			FingerprintPrecision: 6,
		},
		Lookup: LookupConfig{
			Endpoint:  "https://nominatim.openstreetmap.org",
			UserAgent: "geodispatch/1.0",
			Timeout:   Duration(30 * time.Second),
			Zoom:      14,
		},
		Demo: DemoConfig{
			StartLat:   57.64911,
			StartLon:   10.40744,
			Resolution: 7,
			Rings:      1,
		},
	}
}

// Load reads the config file at path, applying defaults for missing values.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read existing file if it exists
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Load from Env if empty (as a fallback, but do NOT save back to disk)
	if v := os.Getenv("NOMINATIM_ENDPOINT"); v != "" {
		cfg.Lookup.Endpoint = v
	}
	if v := os.Getenv("NOMINATIM_USER_AGENT"); v != "" {
		cfg.Lookup.UserAgent = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if time.Duration(c.Dispatch.Heartbeat) <= 0 {
		return fmt.Errorf("dispatch.heartbeat must be positive")
	}
	if c.Dispatch.MaxRetries < 0 {
		return fmt.Errorf("dispatch.max_retries must not be negative")
	}
	if c.Dispatch.FingerprintPrecision <= 0 || c.Dispatch.FingerprintPrecision > 12 {
		return fmt.Errorf("dispatch.fingerprint_precision must be in 1..12")
	}
	return nil
}
