// Package metrics records property assignments as Prometheus metrics.
//
// A Collector implements both props.Logger and props.EvaluatorLogger, so it
// is attached with props.WithLogger / props.WithEvaluatorLogger (or combined
// with other loggers through props.MultiLogger).
package metrics

import (
	"errors"

	"github.com/goliatone/go-props"
	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "props").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
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

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registerer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "props",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Result label values.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Collector holds the property metrics.
type Collector struct {
	assignments *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rescopes    *prometheus.CounterVec
	evaluations *prometheus.CounterVec
}

var (
	_ props.Logger          = (*Collector)(nil)
	_ props.EvaluatorLogger = (*Collector)(nil)
)

// New builds a collector and registers it. Registering twice against the
// same registry fails with prometheus.AlreadyRegisteredError.
func New(opts ...Option) (*Collector, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = prometheus.DefBuckets
	}

	c := &Collector{
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "assignments_total",
			Help:        "Property assignments by property, source and result",
			ConstLabels: cfg.ConstLabels,
		}, []string{"property", "source", "result"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "operation_duration_seconds",
			Help:        "Assignment and rescope duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"op"}),

		rescopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "rescopes_total",
			Help:        "Property values migrated between scopes",
			ConstLabels: cfg.ConstLabels,
		}, []string{"property", "scope"}),

		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "rule_evaluations_total",
			Help:        "Rule evaluations by engine and result",
			ConstLabels: cfg.ConstLabels,
		}, []string{"engine", "result"}),
	}

	for _, collector := range []prometheus.Collector{c.assignments, c.duration, c.rescopes, c.evaluations} {
		if err := cfg.Registry.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LogAssignment implements props.Logger.
func (c *Collector) LogAssignment(event props.AssignmentLogEvent) {
	if c == nil {
		return
	}
	c.duration.WithLabelValues(string(event.Op)).Observe(event.Duration.Seconds())
	switch event.Op {
	case props.OpRescope:
		if event.Err == nil {
			c.rescopes.WithLabelValues(event.Property, string(event.Scope)).Inc()
		}
	default:
		c.assignments.WithLabelValues(event.Property, event.Source.String(), resultOf(event.Err)).Inc()
	}
}

// LogEvaluation implements props.EvaluatorLogger.
func (c *Collector) LogEvaluation(event props.EvaluatorLogEvent) {
	if c == nil {
		return
	}
	c.evaluations.WithLabelValues(event.Engine, resultOf(event.Err)).Inc()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, props.ErrRejected):
		return ResultRejected
	default:
		return ResultError
	}
}
