package apolloAuth

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

const maxEventBufferSize = 1 << 20

// Config controls a [Coordinator]. Start from [DefaultConfig].
type Config struct {
	Cache      CacheConfig
	Validation ValidationConfig
	Events     EventsConfig
	Metrics    MetricsConfig
}

// CacheConfig names the request cache entries the coordinator owns.
type CacheConfig struct {
	// CurrentUserKey is the request cache key of the cached-user entry.
	CurrentUserKey string `env:"APOLLO_CACHE_CURRENT_USER_KEY"`
}

// ValidationConfig toggles client-side checks of credentials and profiles
// before any network call.
type ValidationConfig struct {
	Enabled bool `env:"APOLLO_VALIDATION_ENABLED"`
}

// EventsConfig controls asynchronous session event dispatch.
type EventsConfig struct {
	Enabled    bool `env:"APOLLO_EVENTS_ENABLED"`
	BufferSize int  `env:"APOLLO_EVENTS_BUFFER_SIZE"`
	DropIfFull bool `env:"APOLLO_EVENTS_DROP_IF_FULL"`
}

// MetricsConfig enables counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool `env:"APOLLO_METRICS_ENABLED"`
	EnableLatencyHistograms bool `env:"APOLLO_METRICS_LATENCY_HISTOGRAMS"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			CurrentUserKey: "user",
		},
		Validation: ValidationConfig{
			Enabled: true,
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// ConfigFromEnv overlays APOLLO_* environment variables on [DefaultConfig]
// and validates the result.
func ConfigFromEnv() (Config, error) {
	cfg := defaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Cache.CurrentUserKey == "" {
		return errors.New("Cache CurrentUserKey must not be empty")
	}
	if c.Events.Enabled {
		if c.Events.BufferSize <= 0 {
			return errors.New("Events BufferSize must be > 0 when Events are enabled")
		}
		if c.Events.BufferSize > maxEventBufferSize {
			return fmt.Errorf("Events BufferSize must be <= %d", maxEventBufferSize)
		}
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
