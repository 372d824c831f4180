package queue

import "github.com/prometheus/client_golang/prometheus"

// Gauges are refreshed by the reporter loop; counters tick at completion
// time, so a crashed handler still shows up as "error".
var (
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pos_queue_depth",
		Help: "Ready tasks waiting in the delay queue, per kind.",
	}, []string{"kind"})

	QueueProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_queue_processed_total",
		Help: "Tasks the worker finished, per kind and outcome.",
	}, []string{"kind", "status"})

	QueueDLQSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pos_queue_dlq_size",
		Help: "Tasks parked in the dead-letter table, per kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(QueueDepth, QueueProcessedTotal, QueueDLQSize)
}
