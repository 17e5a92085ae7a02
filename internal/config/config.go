// Package config loads the application configuration: factory settings for
// individuals, the optional fitness cache and logging.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/portfolioga/internal/fitness"
	"github.com/sawpanic/portfolioga/internal/individual"
	"github.com/sawpanic/portfolioga/internal/log"
)

// AppConfig is the root of the YAML configuration
type AppConfig struct {
	Factory individual.Config `yaml:"factory"`
	Cache   fitness.Config    `yaml:"cache"`
	Log     log.Config        `yaml:"log"`
}

// DefaultAppConfig returns a configuration with every section at its defaults
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Factory: individual.DefaultConfig(),
		Cache:   fitness.DefaultConfig(),
		Log:     log.DefaultConfig(),
	}
}

// LoadAppConfig reads configPath over the defaults, then applies environment
// overrides. A missing file leaves the defaults in place.
func LoadAppConfig(configPath string) (*AppConfig, error) {
	config := DefaultAppConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}

			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveAppConfig writes config to configPath as YAML
func SaveAppConfig(config *AppConfig, configPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configPath, err)
	}

	return nil
}

// Validate validates every section
func (c *AppConfig) Validate() error {
	if err := c.Factory.Validate(); err != nil {
		return fmt.Errorf("factory: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Malformed numbers
// are reported rather than ignored.
func applyEnvOverrides(c *AppConfig) error {
	ints := []struct {
		env string
		dst *int
	}{
		{"GA_MAX_ASSETS", &c.Factory.MaxAssets},
		{"GA_WEIGHT_POOL", &c.Factory.WeightPool},
		{"GA_RESERVED_COLUMNS", &c.Factory.ReservedColumns},
		{"REDIS_DB", &c.Cache.Redis.DB},
	}
	for _, o := range ints {
		if v := os.Getenv(o.env); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", o.env, v, err)
			}
			*o.dst = n
		}
	}

	if v := os.Getenv("GA_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GA_SEED %q: %w", v, err)
		}
		c.Factory.Seed = seed
	}

	if v := os.Getenv("GA_SHORTFALL"); v != "" {
		c.Factory.Shortfall = individual.ShortfallPolicy(v)
	}

	if v := os.Getenv("GA_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}

	if v := os.Getenv("GA_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GA_CACHE_TTL %q: %w", v, err)
		}
		c.Cache.TTL = ttl
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	return nil
}
