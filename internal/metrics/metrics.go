package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections — количество живых websocket-соединений
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wavechat",
		Name:      "active_connections",
		Help:      "Number of live websocket connections.",
	})

	// EventsRelayed — доставленные события по типам
	EventsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wavechat",
		Name:      "events_relayed_total",
		Help:      "Events relayed to clients, by event type.",
	}, []string{"type"})

	// RelayErrors — ошибки обработки входящих событий
	RelayErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wavechat",
		Name:      "relay_errors_total",
		Help:      "Inbound events that failed handling.",
	})
)
