package individual

import "errors"

var (
	// ErrConfiguration covers setups the statistics cannot work with: no
	// universe registered, too few rows of prices (2 for returns, 3 for
	// covariance), non-finite statistics, fewer eligible columns
	// than the requested portfolio size, or an invalid factory config.
	ErrConfiguration = errors.New("configuration error")

	// ErrUndefinedFitness is returned when portfolio risk is zero and the
	// Sharpe ratio would be a division by zero.
	ErrUndefinedFitness = errors.New("undefined fitness: portfolio risk is zero")
)
