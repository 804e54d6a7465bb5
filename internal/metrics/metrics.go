// Package metrics exports engine and gateway activity to Prometheus.
//
// A Collector implements both engine.Observer and gateway.Observer:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(metrics.WithRegistry(reg))
//	eng, jobs := engine.New[uuid.UUID](engine.WithObserver(m))
//	gw := gateway.New(eng.Registry(), gateway.WithObserver(m))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/lobbyd/pkg/engine"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "lobbyd").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for session duration.
	// Default: 1s to ~1h.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
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

// WithBuckets sets the session duration buckets.
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
		Namespace: "lobbyd",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Outcome labels for finished sessions.
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomePanic      = "panic"
	OutcomeIDMismatch = "id_mismatch"
)

// Collector holds the Prometheus metrics.
type Collector struct {
	activeSessions   prometheus.Gauge
	sessionsStarted  prometheus.Counter
	sessionsFinished *prometheus.CounterVec
	sessionDuration  prometheus.Histogram
	permitWait       prometheus.Histogram
	handshakes       *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
}

// New registers the metrics and returns the collector.
//
// Metrics collected:
//   - lobbyd_active_sessions: Gauge of sessions holding a permit
//   - lobbyd_sessions_started_total: Counter of admitted sessions
//   - lobbyd_sessions_finished_total: Counter of finished sessions by outcome
//   - lobbyd_session_duration_seconds: Histogram of session run time
//   - lobbyd_permit_wait_seconds: Histogram of time spent waiting for a permit
//   - lobbyd_handshakes_total: Counter of WebSocket handshakes by result
//   - lobbyd_deliveries_total: Counter of stream deliveries by result
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of game sessions currently holding a permit",
			ConstLabels: config.ConstLabels,
		}),

		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_started_total",
			Help:        "Total number of game sessions admitted",
			ConstLabels: config.ConstLabels,
		}),

		sessionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_finished_total",
			Help:        "Total number of game sessions finished, by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "session_duration_seconds",
			Help:        "Game session run time in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		permitWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "permit_wait_seconds",
			Help:        "Time a submitted session waited for a concurrency permit",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.DefBuckets,
		}),

		handshakes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "handshakes_total",
			Help:        "Total WebSocket handshakes by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "deliveries_total",
			Help:        "Total stream deliveries to lobby assembly by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),
	}
}

// SessionStarted implements engine.Observer.
func (c *Collector) SessionStarted(_ string, permitWait time.Duration) {
	c.activeSessions.Inc()
	c.sessionsStarted.Inc()
	c.permitWait.Observe(permitWait.Seconds())
}

// SessionFinished implements engine.Observer.
func (c *Collector) SessionFinished(_ string, elapsed time.Duration, err error) {
	c.activeSessions.Dec()
	c.sessionDuration.Observe(elapsed.Seconds())
	c.sessionsFinished.WithLabelValues(Outcome(err)).Inc()
}

// HandshakeCompleted implements gateway.Observer.
func (c *Collector) HandshakeCompleted(err error) {
	c.handshakes.WithLabelValues(result(err)).Inc()
}

// StreamDelivered implements gateway.Observer.
func (c *Collector) StreamDelivered(err error) {
	c.deliveries.WithLabelValues(result(err)).Inc()
}

// Outcome classifies a session result into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, engine.ErrPanic):
		return OutcomePanic
	case errors.Is(err, engine.ErrIDMismatch):
		return OutcomeIDMismatch
	default:
		return OutcomeError
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
