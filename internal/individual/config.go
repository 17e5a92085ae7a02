package individual

import (
	"fmt"
)

// ShortfallPolicy decides what the random factory does when the universe has
// fewer eligible columns than the drawn portfolio size.
type ShortfallPolicy string

const (
	// ShortfallFail returns ErrConfiguration
	ShortfallFail ShortfallPolicy = "fail"
	// ShortfallClamp reduces the portfolio size to the eligible column count
	ShortfallClamp ShortfallPolicy = "clamp"
)

// Config controls random construction and the zero-risk cutoff.
type Config struct {
	MaxAssets         int             `yaml:"max_assets"`          // upper bound of the drawn portfolio size (default: 20)
	WeightPool        int             `yaml:"weight_pool"`         // integer weights are drawn from [1, WeightPool] (default: 20)
	ReservedColumns   int             `yaml:"reserved_columns"`    // leading columns never selected at random (default: 1)
	Shortfall         ShortfallPolicy `yaml:"shortfall"`           // "fail" or "clamp" (default: fail)
	Seed              int64           `yaml:"seed"`                // 0 seeds from the clock
	ZeroRiskTolerance float64         `yaml:"zero_risk_tolerance"` // risk at or below this is treated as zero; 0 means exactly zero (default: 1e-12)
}

// DefaultConfig returns the factory defaults
func DefaultConfig() Config {
	return Config{
		MaxAssets:         20,
		WeightPool:        20,
		ReservedColumns:   1,
		Shortfall:         ShortfallFail,
		ZeroRiskTolerance: 1e-12,
	}
}

// Validate checks the config for internal consistency
func (c Config) Validate() error {
	if c.MaxAssets < 1 {
		return fmt.Errorf("%w: max_assets must be at least 1, got %d", ErrConfiguration, c.MaxAssets)
	}

	// weights are drawn without replacement, so the pool must cover the largest portfolio
	if c.WeightPool < c.MaxAssets {
		return fmt.Errorf("%w: weight_pool %d smaller than max_assets %d", ErrConfiguration, c.WeightPool, c.MaxAssets)
	}

	if c.ReservedColumns < 0 {
		return fmt.Errorf("%w: reserved_columns cannot be negative", ErrConfiguration)
	}

	switch c.Shortfall {
	case ShortfallFail, ShortfallClamp:
	default:
		return fmt.Errorf("%w: unknown shortfall policy %q", ErrConfiguration, c.Shortfall)
	}

	if c.ZeroRiskTolerance < 0 {
		return fmt.Errorf("%w: zero_risk_tolerance cannot be negative", ErrConfiguration)
	}

	return nil
}
