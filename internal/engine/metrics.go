package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "konverge",
			Subsystem: "engine",
			Name:      "steps_total",
			Help:      "Total number of executed change steps by action and status",
		},
		[]string{"action", "status"},
	)

	stepRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "konverge",
			Subsystem: "engine",
			Name:      "step_retries_total",
			Help:      "Total number of retried provider calls by action",
		},
		[]string{"action"},
	)

	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "konverge",
			Subsystem: "engine",
			Name:      "step_duration_seconds",
			Help:      "Duration of change steps in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(stepsTotal, stepRetriesTotal, stepDuration)
}
