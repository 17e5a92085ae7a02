package individual

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/portfolioga/internal/metrics"
	"github.com/sawpanic/portfolioga/internal/universe"
)

// Env is the shared context every individual is built and evaluated against.
// It owns the registered universe, the construction counter and the random
// source of the factory. An Env is safe for concurrent use.
type Env struct {
	cfg      Config
	universe atomic.Pointer[universe.Universe]
	created  atomic.Int64

	mu  sync.Mutex
	rng *rand.Rand

	metrics *metrics.Registry
	logger  zerolog.Logger
}

// Option customises an Env
type Option func(*Env)

// WithMetrics mirrors construction and evaluation counts into reg
func WithMetrics(reg *metrics.Registry) Option {
	return func(e *Env) { e.metrics = reg }
}

// WithLogger replaces the global zerolog logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Env) { e.logger = logger }
}

// WithRand replaces the seeded random source; Config.Seed is ignored
func WithRand(rng *rand.Rand) Option {
	return func(e *Env) { e.rng = rng }
}

// NewEnv creates an Env with no universe registered
func NewEnv(cfg Config, opts ...Option) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Env{
		cfg:    cfg,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		e.rng = rand.New(rand.NewSource(seed))
	}

	return e, nil
}

// Config returns the factory configuration
func (e *Env) Config() Config {
	return e.cfg
}

// SetUniverse registers u as the price table for every individual evaluated
// against this Env, including ones built before the call. No validation is done.
func (e *Env) SetUniverse(u *universe.Universe) {
	prev := e.universe.Swap(u)

	ev := e.logger.Info()
	if u != nil {
		ev = ev.Str("version", u.Version()).Int("rows", u.Rows()).Int("cols", u.Cols())
	}
	ev.Bool("replaced", prev != nil).Msg("Universe registered")
}

// Universe returns the registered universe, or nil
func (e *Env) Universe() *universe.Universe {
	return e.universe.Load()
}

// Created returns how many individuals have been constructed through this Env
func (e *Env) Created() int64 {
	return e.created.Load()
}

func (e *Env) requireUniverse() (*universe.Universe, error) {
	u := e.universe.Load()
	if u == nil {
		return nil, fmt.Errorf("%w: no universe registered", ErrConfiguration)
	}
	return u, nil
}

func (e *Env) countConstruction() {
	e.created.Add(1)
	if e.metrics != nil {
		e.metrics.IndividualsCreated.Inc()
	}
}

// observe starts a timer for stat when metrics are attached; the returned func
// records the outcome of err.
func (e *Env) observe(stat string) func(err error) {
	if e.metrics == nil {
		return func(error) {}
	}

	timer := e.metrics.StartTimer(stat)
	return func(err error) {
		timer.Stop(resultLabel(err))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isUndefined(err):
		return "undefined"
	default:
		return "error"
	}
}
