// Package prom adapts metrics.Metrics to Prometheus counters and gauges.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrich-go/vkvcache/metrics"
)

// Adapter implements metrics.Metrics and exports Prometheus
// counters/gauges. Safe for concurrent use; all Prometheus metric types
// are goroutine-safe.
type Adapter struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	evicts   *prometheus.CounterVec
	migrates *prometheus.CounterVec
	sizeBits prometheus.Gauge
	maxBits  prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		migrates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "migrations_total",
				Help:        "Completed schema migrations by target version",
				ConstLabels: constLabels,
			},
			[]string{"to_version"},
		),
		sizeBits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_bits",
			Help:        "Resident size, in accounting bits",
			ConstLabels: constLabels,
		}),
		maxBits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "max_bits",
			Help:        "Configured byte budget, in accounting bits",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.migrates, a.sizeBits, a.maxBits)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r metrics.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// Migrate increments the migration counter, labeled by target version.
func (a *Adapter) Migrate(_, to int) {
	a.migrates.WithLabelValues(strconv.Itoa(to)).Inc()
}

// Size updates gauges for resident and budgeted bits.
func (a *Adapter) Size(bits, maxBits int64) {
	a.sizeBits.Set(float64(bits))
	a.maxBits.Set(float64(maxBits))
}

// reason maps EvictReason to a stable label value.
func reason(r metrics.EvictReason) string {
	switch r {
	case metrics.EvictTooLarge:
		return "too_large"
	case metrics.EvictMigration:
		return "migration"
	case metrics.EvictClear:
		return "clear"
	default:
		return "lru"
	}
}

// Compile-time check: ensure Adapter implements metrics.Metrics.
var _ metrics.Metrics = (*Adapter)(nil)
