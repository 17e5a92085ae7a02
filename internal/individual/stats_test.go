package individual

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sawpanic/portfolioga/internal/metrics"
	"github.com/sawpanic/portfolioga/internal/universe"
)

// constantGrowthUniverse has three columns growing by a fixed factor per step
func constantGrowthUniverse(t *testing.T) *universe.Universe {
	t.Helper()

	growth := []float64{1.05, 1.10, 1.20}
	rows := make([][]float64, 5)
	for i := range rows {
		rows[i] = make([]float64, len(growth))
		for j, g := range growth {
			rows[i][j] = 100 * math.Pow(g, float64(i))
		}
	}

	u, err := universe.New(rows, []string{"A", "B", "C"})
	require.NoError(t, err)
	return u
}

func TestPrices_ProjectsSelection(t *testing.T) {
	u := randomWalkUniverse(t, 15, 6, 4)
	env := newTestEnv(t, seeded(1), u)
	ind := env.New([]int{4, 2, 5}, []float64{0.2, 0.3, 0.5})

	prices, err := ind.Prices(env)
	require.NoError(t, err)

	r, c := prices.Dims()
	assert.Equal(t, u.Rows(), r)
	assert.Equal(t, 3, c)
	for i := 0; i < r; i++ {
		assert.Equal(t, u.At(i, 4), prices.At(i, 0))
		assert.Equal(t, u.At(i, 2), prices.At(i, 1))
		assert.Equal(t, u.At(i, 5), prices.At(i, 2))
	}
}

func TestPrices_FollowsUniverseSwap(t *testing.T) {
	first := randomWalkUniverse(t, 10, 4, 1)
	second := randomWalkUniverse(t, 20, 4, 2)
	env := newTestEnv(t, seeded(1), first)
	ind := env.New([]int{1, 3}, []float64{0.5, 0.5})

	before, err := ind.Prices(env)
	require.NoError(t, err)
	r, _ := before.Dims()
	assert.Equal(t, 10, r)

	env.SetUniverse(second)

	after, err := ind.Prices(env)
	require.NoError(t, err)
	r, _ = after.Dims()
	assert.Equal(t, 20, r)
	assert.Equal(t, second.At(0, 3), after.At(0, 1))
}

func TestLogReturns(t *testing.T) {
	u := constantGrowthUniverse(t)
	env := newTestEnv(t, seeded(1), u)
	ind := env.New([]int{2, 1}, []float64{0.5, 0.5})

	returns, err := ind.LogReturns(env)
	require.NoError(t, err)

	r, c := returns.Dims()
	assert.Equal(t, u.Rows()-1, r)
	assert.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, math.Log(1.20), returns.At(i, 0), 1e-12)
		assert.InDelta(t, math.Log(1.10), returns.At(i, 1), 1e-12)
	}
}

func TestStatistics_ConstantGrowthScenario(t *testing.T) {
	env := newTestEnv(t, seeded(1), constantGrowthUniverse(t))
	ind := env.New([]int{1, 2}, []float64{0.5, 0.5})

	ret, err := ind.ExpectedReturn(env)
	require.NoError(t, err)
	assert.InDelta(t, (math.Log(1.10)+math.Log(1.20))/2, ret, 1e-12)

	risk, err := ind.Risk(env)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, risk, 0.0)
	assert.InDelta(t, 0, risk, 1e-12)

	_, err = ind.Sharpe(env)
	assert.ErrorIs(t, err, ErrUndefinedFitness)

	stats, err := ind.Evaluate(env)
	assert.ErrorIs(t, err, ErrUndefinedFitness)
	assert.InDelta(t, ret, stats.ExpectedReturn, 1e-15)
	assert.Equal(t, 0.0, stats.Sharpe)
	assert.Equal(t, 2, stats.Assets)
}

func TestSharpe_FlatPricesAreExactlyZeroRisk(t *testing.T) {
	u, err := universe.New([][]float64{{1, 5}, {1, 5}, {1, 5}}, nil)
	require.NoError(t, err)

	cfg := seeded(1)
	cfg.ZeroRiskTolerance = 0
	env := newTestEnv(t, cfg, u)
	ind := env.New([]int{1}, []float64{1})

	risk, err := ind.Risk(env)
	require.NoError(t, err)
	assert.Equal(t, 0.0, risk)

	sharpe, err := ind.Sharpe(env)
	assert.ErrorIs(t, err, ErrUndefinedFitness)
	assert.False(t, math.IsNaN(sharpe))
	assert.False(t, math.IsInf(sharpe, 0))
}

func TestStatistics_SingleAsset(t *testing.T) {
	u := randomWalkUniverse(t, 60, 4, 8)
	env := newTestEnv(t, seeded(1), u)
	ind := env.New([]int{3}, []float64{1})

	col := make([]float64, u.Rows()-1)
	for i := range col {
		col[i] = math.Log(u.At(i+1, 3)) - math.Log(u.At(i, 3))
	}

	ret, err := ind.ExpectedReturn(env)
	require.NoError(t, err)
	assert.InDelta(t, stat.Mean(col, nil), ret, 1e-15)

	risk, err := ind.Risk(env)
	require.NoError(t, err)
	assert.InDelta(t, stat.StdDev(col, nil), risk, 1e-15)

	sharpe, err := ind.Sharpe(env)
	require.NoError(t, err)
	assert.InDelta(t, ret/risk, sharpe, 1e-12)
}

func TestCovariance_MatchesPairwise(t *testing.T) {
	u := randomWalkUniverse(t, 30, 5, 12)
	env := newTestEnv(t, seeded(1), u)
	ind := env.New([]int{1, 2, 4}, []float64{0.2, 0.3, 0.5})

	returns, err := ind.LogReturns(env)
	require.NoError(t, err)
	cov, err := ind.Covariance(env)
	require.NoError(t, err)

	assert.Equal(t, 3, cov.SymmetricDim())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := stat.Covariance(mat.Col(nil, i, returns), mat.Col(nil, j, returns), nil)
			assert.InDelta(t, want, cov.At(i, j), 1e-15)
		}
	}

	// wᵀΣw expanded by hand
	w := ind.Weights()
	variance := 0.0
	for i := range w {
		for j := range w {
			variance += w[i] * w[j] * cov.At(i, j)
		}
	}
	risk, err := ind.Risk(env)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(variance), risk, 1e-15)
}

func TestSharpe_ScaleInvariant(t *testing.T) {
	u := randomWalkUniverse(t, 40, 6, 21)

	scaled := make([][]float64, u.Rows())
	for i := range scaled {
		scaled[i] = make([]float64, u.Cols())
		for j := range scaled[i] {
			scaled[i][j] = 37.5 * u.At(i, j)
		}
	}
	su, err := universe.New(scaled, nil)
	require.NoError(t, err)

	env := newTestEnv(t, seeded(1), u)
	ind := env.New([]int{1, 3, 5}, []float64{0.5, 0.3, 0.2})

	base, err := ind.Sharpe(env)
	require.NoError(t, err)

	env.SetUniverse(su)
	rescaled, err := ind.Sharpe(env)
	require.NoError(t, err)

	assert.InDelta(t, base, rescaled, 1e-9)
}

func TestStatistics_Idempotent(t *testing.T) {
	env := newTestEnv(t, seeded(1), randomWalkUniverse(t, 50, 8, 33))
	ind, err := env.CreateRandom()
	require.NoError(t, err)

	p1, err := ind.Prices(env)
	require.NoError(t, err)
	p2, err := ind.Prices(env)
	require.NoError(t, err)
	assert.True(t, mat.Equal(p1, p2))

	r1, err := ind.Risk(env)
	require.NoError(t, err)
	r2, err := ind.Risk(env)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	s1, err := ind.Sharpe(env)
	require.NoError(t, err)
	s2, err := ind.Sharpe(env)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	stats, err := ind.Evaluate(env)
	require.NoError(t, err)
	assert.Equal(t, s1, stats.Sharpe)
	assert.Equal(t, r1, stats.Risk)
}

func TestStatistics_ConfigurationErrors(t *testing.T) {
	t.Run("no universe", func(t *testing.T) {
		env := newTestEnv(t, seeded(1), nil)
		ind := env.New([]int{1}, []float64{1})

		_, err := ind.Prices(env)
		assert.ErrorIs(t, err, ErrConfiguration)
		_, err = ind.Sharpe(env)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("single row", func(t *testing.T) {
		u, err := universe.New([][]float64{{1, 2, 3}}, nil)
		require.NoError(t, err)
		env := newTestEnv(t, seeded(1), u)
		ind := env.New([]int{1, 2}, []float64{0.5, 0.5})

		_, err = ind.ExpectedReturn(env)
		assert.ErrorIs(t, err, ErrConfiguration)
		_, err = ind.Risk(env)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("two rows", func(t *testing.T) {
		u, err := universe.New([][]float64{{1, 100, 50}, {1, 110, 40}}, nil)
		require.NoError(t, err)
		env := newTestEnv(t, seeded(1), u)
		ind := env.New([]int{1, 2}, []float64{0.5, 0.5})

		ret, err := ind.ExpectedReturn(env)
		require.NoError(t, err)
		assert.InDelta(t, 0.5*math.Log(1.1)+0.5*math.Log(0.8), ret, 1e-12)

		_, err = ind.Covariance(env)
		assert.ErrorIs(t, err, ErrConfiguration)

		risk, err := ind.Risk(env)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.False(t, math.IsNaN(risk))

		sharpe, err := ind.Sharpe(env)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.False(t, math.IsNaN(sharpe))

		_, err = ind.Evaluate(env)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("non-positive price", func(t *testing.T) {
		u, err := universe.New([][]float64{{1, 100}, {1, -5}, {1, 20}}, nil)
		require.NoError(t, err)
		env := newTestEnv(t, seeded(1), u)
		ind := env.New([]int{1}, []float64{1})

		sharpe, err := ind.Sharpe(env)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.False(t, math.IsNaN(sharpe))
	})

	t.Run("column out of range", func(t *testing.T) {
		env := newTestEnv(t, seeded(1), constantGrowthUniverse(t))
		ind := env.New([]int{1, 7}, []float64{0.5, 0.5})

		_, err := ind.Risk(env)
		assert.ErrorIs(t, err, universe.ErrColumnOutOfRange)
	})

	t.Run("misaligned weights", func(t *testing.T) {
		env := newTestEnv(t, seeded(1), constantGrowthUniverse(t))
		ind := env.New([]int{1, 2}, []float64{1})

		_, err := ind.ExpectedReturn(env)
		assert.Error(t, err)
	})
}

func TestStatistics_RecordMetrics(t *testing.T) {
	reg := metrics.NewRegistry(nil)
	env, err := NewEnv(seeded(1), WithLogger(zerolog.Nop()), WithMetrics(reg))
	require.NoError(t, err)
	env.SetUniverse(constantGrowthUniverse(t))

	ind := env.New([]int{1, 2}, []float64{0.5, 0.5})
	_, _ = ind.Sharpe(env)
	_, _ = ind.Risk(env)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Evaluations.WithLabelValues("sharpe", "undefined")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Evaluations.WithLabelValues("risk", "ok")))
}
