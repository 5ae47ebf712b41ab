package wsession

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors of a Coordinator.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "wsession").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

type MetricsOption func(*MetricsConfig)

func WithMetricsNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

func WithMetricsSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

func WithMetricsConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

func WithMetricsRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "wsession",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors updated by a Coordinator. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	eventsTotal   *prometheus.CounterVec
	connectsTotal *prometheus.CounterVec
	sendsTotal    *prometheus.CounterVec
	pingsTotal    prometheus.Counter
	pongFailures  prometheus.Counter
	openSessions  prometheus.Gauge
}

// NewMetrics creates and registers the collectors. Registering twice against
// the same registry panics, as with any promauto collector.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Events delivered to the stream subscriber, by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		connectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connects_total",
			Help:        "Connect attempts, by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		sendsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sends_total",
			Help:        "Outbound messages, by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		pingsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pings_total",
			Help:        "Keepalive pings sent after an idle period",
			ConstLabels: config.ConstLabels,
		}),

		pongFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pong_failures_total",
			Help:        "Keepalive pings whose pong never arrived",
			ConstLabels: config.ConstLabels,
		}),

		openSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "open_sessions",
			Help:        "Sessions currently in the open state",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) observeEvent(t EventType) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) observeConnect(err error) {
	if m == nil {
		return
	}
	m.connectsTotal.WithLabelValues(statusLabel(err)).Inc()
}

func (m *Metrics) observeSend(err error) {
	if m == nil {
		return
	}
	m.sendsTotal.WithLabelValues(statusLabel(err)).Inc()
}

func (m *Metrics) observePing() {
	if m == nil {
		return
	}
	m.pingsTotal.Inc()
}

func (m *Metrics) observePongFailure() {
	if m == nil {
		return
	}
	m.pongFailures.Inc()
}

// observeTransition keeps the open sessions gauge in line with state changes.
func (m *Metrics) observeTransition(t Transition) {
	if m == nil {
		return
	}
	switch {
	case t.To == StateOpen && t.From != StateOpen:
		m.openSessions.Inc()
	case t.From == StateOpen && t.To != StateOpen:
		m.openSessions.Dec()
	}
}
