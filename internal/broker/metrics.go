package broker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	attempts     *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	abandoned    prometheus.Counter
	probes       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monitora_driver_attempts_total",
			Help: "Driver calls made, by entry point",
		}, []string{"entry_point"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monitora_driver_outcomes_total",
			Help: "Final broker outcomes, by entry point and kind",
		}, []string{"entry_point", "outcome"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "monitora_driver_call_duration_seconds",
			Help:    "Wall clock duration of driver calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 10, 20},
		}, []string{"entry_point"}),
		abandoned: factory.NewCounter(prometheus.CounterOpts{
			Name: "monitora_driver_abandoned_calls_total",
			Help: "Driver calls given up while still running",
		}),
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monitora_probe_candidates_total",
			Help: "Probed candidates, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) call(entryPoint string, elapsed time.Duration, abandoned bool) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(entryPoint).Inc()
	m.callDuration.WithLabelValues(entryPoint).Observe(elapsed.Seconds())
	if abandoned {
		m.abandoned.Inc()
	}
}

func (m *Metrics) outcome(entryPoint string, kind Kind) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(entryPoint, kind.String()).Inc()
}

func (m *Metrics) probe(result string) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(result).Inc()
}
