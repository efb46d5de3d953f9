package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
)

type relayMetrics struct {
	connectionsActive prometheus.Gauge
	usersOnline       prometheus.Gauge
	eventsTotal       *prometheus.CounterVec
	eventErrors       *prometheus.CounterVec
	fanoutDropped     prometheus.Counter
	callsActive       prometheus.Gauge
}

func newRelayMetrics(reg prometheus.Registerer) *relayMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &relayMetrics{
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_relay_connections_active",
			Help: "Current number of live websocket connections.",
		}),
		usersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_relay_users_online",
			Help: "Current number of identities with at least one connection.",
		}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_relay_events_total",
			Help: "Inbound events handled, by event name.",
		}, []string{"event"}),
		eventErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_relay_event_errors_total",
			Help: "Events rejected or failed, by error code.",
		}, []string{"code"}),
		fanoutDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_relay_fanout_dropped_total",
			Help: "Payloads dropped because a subscriber send queue was full.",
		}),
		callsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_relay_calls_active",
			Help: "Current number of call sessions in the relay table.",
		}),
	}

	reg.MustRegister(
		m.connectionsActive,
		m.usersOnline,
		m.eventsTotal,
		m.eventErrors,
		m.fanoutDropped,
		m.callsActive,
	)
	return m
}
