package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	TransportErrors   prometheus.Counter
	PollMessagesTotal *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CommandsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eppclient_commands_total",
			Help: "Commands issued, by operation and outcome",
		}, []string{"op", "outcome"}),
		CommandDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eppclient_command_duration_seconds",
			Help:    "Round-trip latency of commands",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		TransportErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eppclient_transport_errors_total",
			Help: "Commands aborted by a transport failure",
		}),
		PollMessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eppclient_poll_messages_total",
			Help: "Queue messages retrieved, by classified type",
		}, []string{"type"}),
	}
}

// ObserveCommand records one completed command.
func (m *Metrics) ObserveCommand(op, outcome string, seconds float64) {
	m.CommandsTotal.WithLabelValues(op, outcome).Inc()
	m.CommandDuration.WithLabelValues(op).Observe(seconds)
}

// IncrementTransportErrors counts one transport-level failure.
func (m *Metrics) IncrementTransportErrors() {
	m.TransportErrors.Inc()
}

// IncrementPollMessage counts one classified queue message.
func (m *Metrics) IncrementPollMessage(msgType string) {
	m.PollMessagesTotal.WithLabelValues(msgType).Inc()
}
