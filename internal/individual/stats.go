package individual

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Stats bundles the statistics of one evaluation
type Stats struct {
	ExpectedReturn float64 `json:"expected_return"`
	Risk           float64 `json:"risk"`
	Sharpe         float64 `json:"sharpe"`
	Assets         int     `json:"assets"`
}

// Prices returns the registered universe restricted to the selected columns, in
// selection order, with every row. It reads the live universe on each call.
func (ind *Individual) Prices(env *Env) (*mat.Dense, error) {
	u, err := env.requireUniverse()
	if err != nil {
		return nil, err
	}

	prices, err := u.Columns(ind.assets)
	if err != nil {
		return nil, fmt.Errorf("project prices: %w", err)
	}
	return prices, nil
}

// LogReturns returns the first difference of the log prices, one row shorter
// than the universe.
func (ind *Individual) LogReturns(env *Env) (*mat.Dense, error) {
	prices, err := ind.Prices(env)
	if err != nil {
		return nil, err
	}

	rows, k := prices.Dims()
	if rows < 2 {
		return nil, fmt.Errorf("%w: %d rows of prices, need at least 2", ErrConfiguration, rows)
	}
	if len(ind.weights) != k {
		return nil, fmt.Errorf("%d weights for %d assets", len(ind.weights), k)
	}

	returns := mat.NewDense(rows-1, k, nil)
	for t := 1; t < rows; t++ {
		for j := 0; j < k; j++ {
			returns.Set(t-1, j, math.Log(prices.At(t, j))-math.Log(prices.At(t-1, j)))
		}
	}
	return returns, nil
}

// Covariance returns the k×k sample covariance of the log returns (N-1 denominator).
// It needs at least 2 returns, so a universe of 3 rows.
func (ind *Individual) Covariance(env *Env) (*mat.SymDense, error) {
	returns, err := ind.LogReturns(env)
	if err != nil {
		return nil, err
	}
	return covariance(returns)
}

// ExpectedReturn is the weighted sum of the mean log return of each asset
func (ind *Individual) ExpectedReturn(env *Env) (float64, error) {
	done := env.observe("expected_return")

	returns, err := ind.LogReturns(env)
	if err != nil {
		done(err)
		return 0, err
	}

	ret := expectedReturn(returns, ind.weights)
	done(nil)
	return ret, nil
}

// Risk is the portfolio standard deviation sqrt(wᵀΣw)
func (ind *Individual) Risk(env *Env) (float64, error) {
	done := env.observe("risk")

	returns, err := ind.LogReturns(env)
	if err != nil {
		done(err)
		return 0, err
	}

	cov, err := covariance(returns)
	if err != nil {
		done(err)
		return 0, err
	}

	risk := portfolioRisk(cov, ind.weights)
	done(nil)
	return risk, nil
}

// Sharpe is expected return over risk with a zero risk-free rate. It is the
// fitness a genetic algorithm maximises. Risk at or below
// Config.ZeroRiskTolerance yields ErrUndefinedFitness; set the tolerance to 0
// to reject only an exactly zero risk.
func (ind *Individual) Sharpe(env *Env) (float64, error) {
	done := env.observe("sharpe")

	stats, err := ind.evaluate(env)
	done(err)
	if err != nil {
		return 0, err
	}
	return stats.Sharpe, nil
}

// Evaluate computes all statistics from a single pass over the returns. On zero
// risk the return and risk are still filled in next to ErrUndefinedFitness.
func (ind *Individual) Evaluate(env *Env) (Stats, error) {
	done := env.observe("evaluate")

	stats, err := ind.evaluate(env)
	done(err)
	return stats, err
}

func (ind *Individual) evaluate(env *Env) (Stats, error) {
	returns, err := ind.LogReturns(env)
	if err != nil {
		return Stats{}, err
	}

	cov, err := covariance(returns)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ExpectedReturn: expectedReturn(returns, ind.weights),
		Risk:           portfolioRisk(cov, ind.weights),
		Assets:         len(ind.assets),
	}

	// non-positive prices leave NaN logs behind
	if math.IsNaN(stats.Risk) || math.IsNaN(stats.ExpectedReturn) {
		return Stats{}, fmt.Errorf("%w: non-finite statistics for %s", ErrConfiguration, ind)
	}

	if stats.Risk <= env.cfg.ZeroRiskTolerance {
		return stats, fmt.Errorf("%w: risk %g for %s", ErrUndefinedFitness, stats.Risk, ind)
	}

	stats.Sharpe = stats.ExpectedReturn / stats.Risk
	return stats, nil
}

func covariance(returns *mat.Dense) (*mat.SymDense, error) {
	n, _ := returns.Dims()
	if n < 2 {
		return nil, fmt.Errorf("%w: %d log returns, covariance needs at least 2", ErrConfiguration, n)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, returns, nil)
	return &cov, nil
}

func expectedReturn(returns *mat.Dense, weights []float64) float64 {
	var ret float64
	for j, w := range weights {
		ret += w * stat.Mean(mat.Col(nil, j, returns), nil)
	}
	return ret
}

func portfolioRisk(cov *mat.SymDense, weights []float64) float64 {
	w := mat.NewVecDense(len(weights), append([]float64(nil), weights...))
	variance := mat.Inner(w, cov, w)
	// round-off can push a zero variance slightly negative
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func isUndefined(err error) bool {
	return errors.Is(err, ErrUndefinedFitness)
}
