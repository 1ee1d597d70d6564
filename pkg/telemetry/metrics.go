package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "bore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "bore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors. All methods are safe on a nil
// receiver.
type Metrics struct {
	mountsTotal   prometheus.Counter
	queriesTotal  *prometheus.CounterVec
	queryErrors   *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	queryMatches  prometheus.Histogram
	waitPolls     prometheus.Counter
	waitsTotal    *prometheus.CounterVec
	waitDuration  prometheus.Histogram
}

// NewMetrics creates and registers the collectors. Registering twice on
// the same registry panics, as promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		mountsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mounts_total",
			Help:        "Total number of nodes mounted",
			ConstLabels: config.ConstLabels,
		}),

		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "queries_total",
			Help:        "Total number of queries resolved",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		queryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "query_errors_total",
			Help:        "Total number of queries that failed",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "query_duration_seconds",
			Help:        "Query resolution duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		queryMatches: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "query_matches",
			Help:        "Number of nodes matched per query",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),

		waitPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "wait_polls_total",
			Help:        "Total number of wait predicate checks",
			ConstLabels: config.ConstLabels,
		}),

		waitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "waits_total",
			Help:        "Total number of settled waits",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		waitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "wait_duration_seconds",
			Help:        "Time from wait start to settle in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// ObserveMount counts a mount.
func (m *Metrics) ObserveMount() {
	if m == nil {
		return
	}
	m.mountsTotal.Inc()
}

// ObserveQuery records one resolved query.
func (m *Metrics) ObserveQuery(kind string, d time.Duration, matches int, err error) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(kind).Inc()
	m.queryDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		m.queryErrors.WithLabelValues(kind).Inc()
		return
	}
	m.queryMatches.Observe(float64(matches))
}

// ObservePoll counts one wait predicate check.
func (m *Metrics) ObservePoll() {
	if m == nil {
		return
	}
	m.waitPolls.Inc()
}

// Wait outcomes.
const (
	OutcomeResolved = "resolved"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
)

// ObserveWait records a settled wait.
func (m *Metrics) ObserveWait(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.waitsTotal.WithLabelValues(outcome).Inc()
	m.waitDuration.Observe(d.Seconds())
}
