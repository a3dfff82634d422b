package forwarder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	lines      prometheus.Counter
	triggers   prometheus.Counter
	sendErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		lines: factory.NewCounter(prometheus.CounterOpts{
			Name: "monitora_forwarder_lines_total",
			Help: "The total number of log lines read",
		}),
		triggers: factory.NewCounter(prometheus.CounterOpts{
			Name: "monitora_forwarder_triggers_total",
			Help: "The total number of trigger lines forwarded",
		}),
		sendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "monitora_forwarder_send_errors_total",
			Help: "The total number of messages that could not be delivered",
		}),
	}
}
