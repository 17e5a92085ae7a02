package fitness

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerCache trips after consecutive backend failures so a dead cache costs
// one fast error per lookup instead of a network timeout.
type BreakerCache struct {
	inner   Cache
	breaker *gobreaker.CircuitBreaker
}

type getResult struct {
	value []byte
	found bool
}

// NewBreakerCache wraps inner with a circuit breaker
func NewBreakerCache(inner Cache, cfg BreakerConfig) *BreakerCache {
	settings := gobreaker.Settings{
		Name:        "fitness-cache-" + inner.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Fitness cache circuit breaker state change")
		},
	}

	return &BreakerCache{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		v, ok, err := b.inner.Get(ctx, key)
		return getResult{value: v, found: ok}, err
	})
	if err != nil {
		return nil, false, err
	}

	r := res.(getResult)
	return r.value, r.found, nil
}

func (b *BreakerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.inner.Set(ctx, key, value, ttl)
	})
	return err
}

// State reports the breaker state
func (b *BreakerCache) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerCache) Name() string { return b.inner.Name() }
