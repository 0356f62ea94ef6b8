package provisioning

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iacaws",
			Subsystem: "reconcile",
			Name:      "total",
			Help:      "Total number of reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iacaws",
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Duration of reconciliation in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4min
		},
		[]string{"outcome"},
	)

	provisionCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iacaws",
			Subsystem: "provisioner",
			Name:      "calls_total",
			Help:      "Total number of provisioning calls by step and result",
		},
		[]string{"step", "result"},
	)

	provisionCallLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iacaws",
			Subsystem: "provisioner",
			Name:      "call_latency_seconds",
			Help:      "Latency of provisioning calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~25s
		},
		[]string{"step"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		reconcileTotal,
		reconcileDuration,
		provisionCallsTotal,
		provisionCallLatency,
	)
}

func (r *Reconciler) recordReconcile(o Outcome) {
	if !r.enableMetrics {
		return
	}
	reconcileTotal.WithLabelValues(string(o.Kind)).Inc()
	reconcileDuration.WithLabelValues(string(o.Kind)).Observe(o.Duration().Seconds())
}

func (r *Reconciler) recordProvisionCall(step Step, result string, latency float64) {
	if !r.enableMetrics {
		return
	}
	provisionCallsTotal.WithLabelValues(string(step), result).Inc()
	provisionCallLatency.WithLabelValues(string(step)).Observe(latency)
}
