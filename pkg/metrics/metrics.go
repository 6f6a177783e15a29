// Package metrics exports reactive graph instrumentation to Prometheus
// and OpenTelemetry. Both exporters implement reactive.Hooks and attach
// to a system via reactive.WithHooks; combine them with
// reactive.MultiHooks.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lumen-dev/lumen/pkg/reactive"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "lumen").
	Namespace string

	// Subsystem is the metrics subsystem (default: "reactive").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for run durations.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures the Prometheus collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets for run durations.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "lumen",
		Subsystem: "reactive",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector implements reactive.Hooks on top of Prometheus metrics.
//
// Metrics collected:
//   - lumen_reactive_nodes_created_total: counter of created nodes by kind
//   - lumen_reactive_nodes_active: gauge of live nodes by kind
//   - lumen_reactive_recompute_duration_seconds: histogram of derivation runs
//   - lumen_reactive_effect_duration_seconds: histogram of effect runs
//   - lumen_reactive_flushes_total: counter of flushes
//   - lumen_reactive_flush_size: histogram of effect invalidations per flush
//   - lumen_reactive_cycle_errors_total: counter of detected cycles
//   - lumen_reactive_budget_exceeded_total: counter of dropped effect runs
type Collector struct {
	nodesCreated   *prometheus.CounterVec
	nodesActive    *prometheus.GaugeVec
	recomputeTime  prometheus.Histogram
	effectTime     prometheus.Histogram
	flushes        prometheus.Counter
	flushSize      prometheus.Histogram
	cycleErrors    prometheus.Counter
	budgetExceeded prometheus.Counter
}

// New creates a Collector and registers its metrics.
//
// Example:
//
//	col := metrics.New(metrics.WithNamespace("myapp"))
//	sys := reactive.NewSystem(reactive.WithHooks(col))
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		nodesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes_created_total",
			Help:        "Total number of reactive nodes created, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		nodesActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes_active",
			Help:        "Number of live reactive nodes, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		recomputeTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recompute_duration_seconds",
			Help:        "Duration of computed derivation runs in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		effectTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Duration of effect body runs in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of notification flushes",
			ConstLabels: config.ConstLabels,
		}),

		flushSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_size",
			Help:        "Effect invalidations processed per flush",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),

		cycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_errors_total",
			Help:        "Total number of circular dependency errors",
			ConstLabels: config.ConstLabels,
		}),

		budgetExceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "budget_exceeded_total",
			Help:        "Total number of effect runs dropped by the flush budget",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// NodeCreated implements reactive.Hooks.
func (c *Collector) NodeCreated(kind reactive.NodeKind, id uint64) {
	c.nodesCreated.WithLabelValues(string(kind)).Inc()
	c.nodesActive.WithLabelValues(string(kind)).Inc()
}

// NodeDestroyed implements reactive.Hooks.
func (c *Collector) NodeDestroyed(kind reactive.NodeKind, id uint64) {
	c.nodesActive.WithLabelValues(string(kind)).Dec()
}

// Recomputed implements reactive.Hooks.
func (c *Collector) Recomputed(id uint64, d time.Duration) {
	c.recomputeTime.Observe(d.Seconds())
}

// EffectRan implements reactive.Hooks.
func (c *Collector) EffectRan(id uint64, d time.Duration) {
	c.effectTime.Observe(d.Seconds())
}

// Flushed implements reactive.Hooks.
func (c *Collector) Flushed(processed int) {
	c.flushes.Inc()
	c.flushSize.Observe(float64(processed))
}

// CycleDetected implements reactive.Hooks.
func (c *Collector) CycleDetected(id uint64) {
	c.cycleErrors.Inc()
}

// BudgetExceeded implements reactive.Hooks.
func (c *Collector) BudgetExceeded(id uint64) {
	c.budgetExceeded.Inc()
}

var _ reactive.Hooks = (*Collector)(nil)
