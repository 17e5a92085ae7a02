// Package log configures the process-wide zerolog logger.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects level and output format
type Config struct {
	Level   string `yaml:"level"`   // zerolog level name (default: info)
	Console bool   `yaml:"console"` // human-readable output instead of JSON
}

// DefaultConfig logs JSON at info level
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// Validate checks that Level parses
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	return nil
}

// Setup installs the global logger writing to stderr
func Setup(cfg Config) (zerolog.Logger, error) {
	return SetupWriter(cfg, os.Stderr)
}

// SetupWriter installs the global logger writing to w
func SetupWriter(cfg Config, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	if cfg.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger, nil
}
