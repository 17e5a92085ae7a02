package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// Registry holds the Prometheus collectors for individual construction and
// fitness evaluation
type Registry struct {
	IndividualsCreated prometheus.Counter

	Evaluations        *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec

	CacheRequests *prometheus.CounterVec
	CacheHitRatio prometheus.Gauge

	mu          sync.Mutex
	cacheHits   float64
	cacheLookup float64
}

// NewRegistry creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		IndividualsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portfolioga_individuals_created_total",
				Help: "Total number of portfolio individuals constructed",
			},
		),

		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolioga_evaluations_total",
				Help: "Statistic evaluations by statistic and result",
			},
			[]string{"stat", "result"},
		),

		EvaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolioga_evaluation_duration_seconds",
				Help:    "Duration of statistic evaluations in seconds",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"stat"},
		),

		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolioga_fitness_cache_requests_total",
				Help: "Fitness cache lookups by backend and result",
			},
			[]string{"backend", "result"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portfolioga_fitness_cache_hit_ratio",
				Help: "Fitness cache hit ratio across backends (0.0 to 1.0)",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			r.IndividualsCreated,
			r.Evaluations,
			r.EvaluationDuration,
			r.CacheRequests,
			r.CacheHitRatio,
		)
	}

	return r
}

// Timer tracks one statistic evaluation
type Timer struct {
	registry *Registry
	stat     string
	start    time.Time
}

// StartTimer begins timing an evaluation of stat
func (r *Registry) StartTimer(stat string) *Timer {
	return &Timer{registry: r, stat: stat, start: time.Now()}
}

// Stop records the duration and outcome
func (t *Timer) Stop(result string) {
	duration := time.Since(t.start)
	t.registry.EvaluationDuration.WithLabelValues(t.stat).Observe(duration.Seconds())
	t.registry.Evaluations.WithLabelValues(t.stat, result).Inc()
}

// RecordCacheHit records a fitness cache hit on backend
func (r *Registry) RecordCacheHit(backend string) {
	r.CacheRequests.WithLabelValues(backend, "hit").Inc()
	r.updateCacheHitRatio(true)
}

// RecordCacheMiss records a fitness cache miss on backend
func (r *Registry) RecordCacheMiss(backend string) {
	r.CacheRequests.WithLabelValues(backend, "miss").Inc()
	r.updateCacheHitRatio(false)
}

// RecordCacheError records a backend failure; errors count as misses for the ratio
func (r *Registry) RecordCacheError(backend string) {
	r.CacheRequests.WithLabelValues(backend, "error").Inc()
	r.updateCacheHitRatio(false)
}

// CounterValue reads the current value of a counter
func CounterValue(c prometheus.Counter) float64 {
	m := &io_prometheus_client.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func (r *Registry) updateCacheHitRatio(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cacheLookup++
	if hit {
		r.cacheHits++
	}
	r.CacheHitRatio.Set(r.cacheHits / r.cacheLookup)
}
