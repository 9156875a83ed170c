package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	commands      *prometheus.CounterVec
	published     prometheus.Counter
	subscriptions prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kv_commands_total",
			Help: "Commands executed, by request variant.",
		}, []string{"command"}),
		published: factory.NewCounter(prometheus.CounterOpts{
			Name: "kv_published_messages_total",
			Help: "Messages accepted for publish fan-out.",
		}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kv_active_subscriptions",
			Help: "Currently active subscriptions.",
		}),
	}
}
