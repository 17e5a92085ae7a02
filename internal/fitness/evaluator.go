package fitness

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/portfolioga/internal/individual"
	"github.com/sawpanic/portfolioga/internal/metrics"
)

// Evaluator computes individual statistics through an optional cache
type Evaluator struct {
	env     *individual.Env
	cache   Cache
	ttl     time.Duration
	prefix  string
	metrics *metrics.Registry
	logger  zerolog.Logger
}

// cachedStats is the stored form; Undefined marks a zero-risk result
type cachedStats struct {
	Stats     individual.Stats `json:"stats"`
	Undefined bool             `json:"undefined,omitempty"`
}

// NewEvaluator creates an evaluator over env. A nil cache evaluates directly.
func NewEvaluator(env *individual.Env, cache Cache, cfg Config, reg *metrics.Registry) *Evaluator {
	return &Evaluator{
		env:     env,
		cache:   cache,
		ttl:     cfg.TTL,
		prefix:  cfg.KeyPrefix,
		metrics: reg,
		logger:  log.Logger,
	}
}

// Evaluate returns the statistics of ind, from cache when possible. Zero risk
// is remembered and reported as individual.ErrUndefinedFitness on every call.
func (e *Evaluator) Evaluate(ctx context.Context, ind *individual.Individual) (individual.Stats, error) {
	u := e.env.Universe()
	if e.cache == nil || u == nil {
		return ind.Evaluate(e.env)
	}

	key := Key(e.prefix, u.Version(), e.env.Config().ZeroRiskTolerance, ind)

	raw, found, err := e.cache.Get(ctx, key)
	lookupFailed := err != nil
	switch {
	case lookupFailed:
		e.recordError(err, key)
	case found:
		var cs cachedStats
		jerr := json.Unmarshal(raw, &cs)
		if jerr == nil {
			e.recordHit()
			return cs.result()
		}
		e.recordError(fmt.Errorf("decode cached stats: %w", jerr), key)
	default:
		e.recordMiss()
	}

	stats, evalErr := ind.Evaluate(e.env)
	undefined := errors.Is(evalErr, individual.ErrUndefinedFitness)
	if evalErr != nil && !undefined {
		return stats, evalErr
	}

	// no write after a failed lookup, or once the universe has moved on
	if lookupFailed || e.env.Universe() != u {
		return stats, evalErr
	}

	payload, err := json.Marshal(cachedStats{Stats: stats, Undefined: undefined})
	if err == nil {
		err = e.cache.Set(ctx, key, payload, e.ttl)
	}
	if err != nil {
		e.recordError(err, key)
	}

	return stats, evalErr
}

// Sharpe returns the fitness of ind
func (e *Evaluator) Sharpe(ctx context.Context, ind *individual.Individual) (float64, error) {
	stats, err := e.Evaluate(ctx, ind)
	if err != nil {
		return 0, err
	}
	return stats.Sharpe, nil
}

// Key derives the cache key of ind evaluated against universe version. The
// zero-risk tolerance is part of the key since it decides which results are
// undefined.
func Key(prefix, version string, tolerance float64, ind *individual.Individual) string {
	h := xxhash.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(tolerance))
	h.Write(buf[:])

	assets := ind.Assets()
	binary.LittleEndian.PutUint64(buf[:], uint64(len(assets)))
	h.Write(buf[:])
	for _, a := range assets {
		binary.LittleEndian.PutUint64(buf[:], uint64(a))
		h.Write(buf[:])
	}
	for _, w := range ind.Weights() {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(w))
		h.Write(buf[:])
	}

	return fmt.Sprintf("%s%s:%016x", prefix, version, h.Sum64())
}

func (cs cachedStats) result() (individual.Stats, error) {
	if cs.Undefined {
		return cs.Stats, fmt.Errorf("%w: risk %g (cached)", individual.ErrUndefinedFitness, cs.Stats.Risk)
	}
	return cs.Stats, nil
}

func (e *Evaluator) recordHit() {
	if e.metrics != nil {
		e.metrics.RecordCacheHit(e.cache.Name())
	}
}

func (e *Evaluator) recordMiss() {
	if e.metrics != nil {
		e.metrics.RecordCacheMiss(e.cache.Name())
	}
}

func (e *Evaluator) recordError(err error, key string) {
	e.logger.Warn().Err(err).Str("key", key).Str("backend", e.cache.Name()).Msg("Fitness cache unavailable, evaluating directly")
	if e.metrics != nil {
		e.metrics.RecordCacheError(e.cache.Name())
	}
}
