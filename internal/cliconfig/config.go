// Package cliconfig loads the apollo CLI configuration from a YAML file and
// APOLLO_* environment variables.
package cliconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Slot backends.
const (
	SlotFile  = "file"
	SlotRedis = "redis"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the complete CLI configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Slot    SlotConfig    `mapstructure:"slot"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// APIConfig locates the credential API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SlotConfig selects where the token is kept between invocations.
type SlotConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	// Seal encrypts the file slot with an age X25519 identity stored at
	// IdentityPath.
	Seal         bool          `mapstructure:"seal"`
	IdentityPath string        `mapstructure:"identity_path"`
	RedisKey     string        `mapstructure:"redis_key"`
	RedisTTL     time.Duration `mapstructure:"redis_ttl"`
}

// CacheConfig selects the request cache.
type CacheConfig struct {
	Backend     string        `mapstructure:"backend"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// RedisConfig is shared by the Redis slot and cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.Slot.Backend == SlotRedis || c.Cache.Backend == CacheRedis
}

// Load reads cfgFile, or .apollo.yaml from the working directory and the
// user config directory, then applies APOLLO_* environment overrides.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".apollo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("APOLLO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	dir, err := configDir()
	if err != nil {
		dir = "."
	}

	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", 10*time.Second)

	v.SetDefault("slot.backend", SlotFile)
	v.SetDefault("slot.path", filepath.Join(dir, "token"))
	v.SetDefault("slot.seal", false)
	v.SetDefault("slot.identity_path", filepath.Join(dir, "identity.age"))
	v.SetDefault("slot.redis_key", "apollo_token")
	v.SetDefault("slot.redis_ttl", time.Duration(0))

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.redis_prefix", "apollo:cache")
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("output.colors", true)
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "apollo"), nil
}

// Validate checks backend names, the API URL and durations.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}

	switch c.Slot.Backend {
	case SlotFile:
		if c.Slot.Path == "" {
			return errors.New("slot.path required for the file backend")
		}
		if c.Slot.Seal && c.Slot.IdentityPath == "" {
			return errors.New("slot.identity_path required when slot.seal is set")
		}
	case SlotRedis:
		if c.Slot.RedisTTL < 0 {
			return errors.New("slot.redis_ttl must be >= 0")
		}
	default:
		return fmt.Errorf("invalid slot.backend: %s (must be file or redis)", c.Slot.Backend)
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid cache.backend: %s (must be memory or redis)", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must be >= 0")
	}
	if c.UsesRedis() && c.Redis.Addr == "" {
		return errors.New("redis.addr required by the redis backends")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	return nil
}
