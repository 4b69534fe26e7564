package metricsvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/masomo/core/realtime"
)

const namespace = "masomo"

// RelayMetrics records relay events as prometheus metrics.
type RelayMetrics struct {
	connections    prometheus.Counter
	disconnections *prometheus.CounterVec
	active         prometheus.Gauge
	dispatched     *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	sendsDropped   prometheus.Counter
}

var _ realtime.Observer = (*RelayMetrics)(nil)

// NewRelayMetrics registers the relay metrics on reg.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	factory := promauto.With(reg)
	const subsystem = "realtime"

	return &RelayMetrics{
		connections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections_total",
			Help:      "Total number of admitted websocket connections",
		}),
		disconnections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "disconnections_total",
			Help:      "Total number of closed websocket connections",
		}, []string{"reason"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_connections",
			Help:      "Number of registered websocket connections",
		}),
		dispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_dispatched_total",
			Help:      "Total number of inbound messages routed",
		}, []string{"kind"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_dropped_total",
			Help:      "Total number of inbound messages discarded",
		}, []string{"reason"}),
		sendsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sends_dropped_total",
			Help:      "Total number of outbound messages skipped for a full or closed connection",
		}),
	}
}

func (m *RelayMetrics) Observe(e realtime.Event) {
	switch e.Type {
	case realtime.EventConnected:
		m.connections.Inc()
		m.active.Inc()
	case realtime.EventDisconnected:
		m.disconnections.WithLabelValues(e.Reason).Inc()
		m.active.Dec()
	case realtime.EventDispatched:
		m.dispatched.WithLabelValues(string(e.Kind)).Inc()
	case realtime.EventMessageDropped:
		m.dropped.WithLabelValues(e.Reason).Inc()
	case realtime.EventSendDropped:
		m.sendsDropped.Inc()
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
