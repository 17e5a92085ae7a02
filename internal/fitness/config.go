package fitness

import (
	"fmt"
	"time"
)

// Backend names accepted in Config.Backend
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and tunes the fitness cache
type Config struct {
	Backend   string        `yaml:"backend"`    // none, memory or redis (default: none)
	TTL       time.Duration `yaml:"ttl"`        // entry lifetime, 0 keeps entries forever
	KeyPrefix string        `yaml:"key_prefix"` // prepended to every key (default: "portfolioga:fitness:")
	Redis     RedisConfig   `yaml:"redis"`
	Breaker   BreakerConfig `yaml:"breaker"`
}

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"`
}

// BreakerConfig tunes the circuit breaker in front of the Redis backend
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`         // trial requests allowed while half-open
	Interval            time.Duration `yaml:"interval"`             // closed-state count reset period
	Timeout             time.Duration `yaml:"timeout"`              // open-state duration before probing
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"` // failures that trip the breaker
}

// DefaultConfig disables caching
func DefaultConfig() Config {
	return Config{
		Backend:   BackendNone,
		TTL:       30 * time.Minute,
		KeyPrefix: "portfolioga:fitness:",
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Timeout: 500 * time.Millisecond,
		},
		Breaker: BreakerConfig{
			MaxRequests:         1,
			Interval:            time.Minute,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
		},
	}
}

// Validate checks the backend name and the settings it needs
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNone, BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis backend")
		}
		if c.Breaker.ConsecutiveFailures == 0 {
			return fmt.Errorf("breaker consecutive_failures must be positive")
		}
	default:
		return fmt.Errorf("unknown fitness cache backend %q", c.Backend)
	}

	if c.TTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}
	return nil
}

// NewCache builds the configured backend; BackendNone returns a nil Cache
func NewCache(cfg Config) (Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryCache(), nil
	case BackendRedis:
		rc, err := NewRedisCache(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewBreakerCache(rc, cfg.Breaker), nil
	default:
		return nil, nil
	}
}
