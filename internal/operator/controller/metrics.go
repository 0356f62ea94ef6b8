package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/imamik/iacaws/internal/util/async"
)

var (
	poolWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "iacaws",
			Subsystem: "pool",
			Name:      "workers",
			Help:      "Number of worker goroutines by state",
		},
		[]string{"state"},
	)

	poolQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iacaws",
			Subsystem: "pool",
			Name:      "queued_tasks",
			Help:      "Number of tasks waiting for a worker",
		},
	)

	poolTasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "iacaws",
			Subsystem: "pool",
			Name:      "tasks",
			Help:      "Cumulative number of tasks by disposition since start",
		},
		[]string{"disposition"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		poolWorkers,
		poolQueued,
		poolTasks,
	)
}

func (c *Controller) recordPoolStats(s async.Stats) {
	if !c.enableMetrics {
		return
	}
	poolWorkers.WithLabelValues("busy").Set(float64(s.Workers - s.Idle))
	poolWorkers.WithLabelValues("idle").Set(float64(s.Idle))
	poolQueued.Set(float64(s.Queued))
	poolTasks.WithLabelValues("completed").Set(float64(s.Completed))
	poolTasks.WithLabelValues("failed").Set(float64(s.Failed))
	poolTasks.WithLabelValues("caller_runs").Set(float64(s.CallerRuns))
	poolTasks.WithLabelValues("rejected").Set(float64(s.Rejected))
	poolTasks.WithLabelValues("dropped").Set(float64(s.Dropped))
}
