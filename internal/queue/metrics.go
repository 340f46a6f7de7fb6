package queue

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Number of tasks per queue and state",
		},
		[]string{"queue", "state"},
	)
	QueueReplayedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_replayed_total",
			Help: "Archived tasks moved back to pending by outcome",
		},
		[]string{"queue", "result"},
	)
)

// RegisterMetrics registers the queue collectors on reg. Registering twice is a no-op.
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{QueueDepth, QueueReplayedTotal} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
