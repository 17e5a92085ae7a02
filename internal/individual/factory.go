package individual

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// New builds an individual from caller-supplied assets and weights. Nothing is
// validated; the caller keeps the slices aligned and the weights on the simplex.
func (e *Env) New(assets []int, weights []float64) *Individual {
	ind := &Individual{
		id:      uuid.New(),
		assets:  append([]int(nil), assets...),
		weights: append([]float64(nil), weights...),
	}
	e.countConstruction()
	return ind
}

// CreateRandom draws a portfolio size k from [1, MaxAssets], k distinct columns
// from the eligible range [ReservedColumns, cols-1] and k distinct integer
// weights from [1, WeightPool] normalised to sum to 1.
func (e *Env) CreateRandom() (*Individual, error) {
	u, err := e.requireUniverse()
	if err != nil {
		return nil, err
	}

	lo := e.cfg.ReservedColumns
	eligible := u.Cols() - lo
	if eligible < 1 {
		return nil, fmt.Errorf("%w: universe has %d columns, %d reserved, none eligible", ErrConfiguration, u.Cols(), lo)
	}

	e.mu.Lock()
	k := 1 + e.rng.Intn(e.cfg.MaxAssets)
	if k > eligible {
		if e.cfg.Shortfall != ShortfallClamp {
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: portfolio size %d exceeds %d eligible columns", ErrConfiguration, k, eligible)
		}
		k = eligible
	}
	assets := sample(e.rng, lo, eligible, k)
	raw := sample(e.rng, 1, e.cfg.WeightPool, k)
	e.mu.Unlock()

	weights := normalise(raw)
	ind := e.New(assets, weights)

	e.logger.Debug().
		Str("id", ind.ID().String()).
		Int("size", k).
		Ints("assets", assets).
		Msg("Random individual created")

	return ind, nil
}

// sample draws k distinct integers uniformly from [lo, lo+n).
func sample(rng *rand.Rand, lo, n, k int) []int {
	perm := rng.Perm(n)[:k]
	out := make([]int, k)
	for i, p := range perm {
		out[i] = lo + p
	}
	return out
}

func normalise(raw []int) []float64 {
	total := 0
	for _, v := range raw {
		total += v
	}

	weights := make([]float64, len(raw))
	for i, v := range raw {
		weights[i] = float64(v) / float64(total)
	}
	return weights
}
