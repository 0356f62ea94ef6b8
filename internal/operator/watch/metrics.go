package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	watchState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iacaws",
			Subsystem: "watch",
			Name:      "state",
			Help:      "Current watch supervisor state (0=Disconnected, 1=Connected, 2=Reconnecting, 3=Failed, 4=Shutdown)",
		},
	)

	watchEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iacaws",
			Subsystem: "watch",
			Name:      "events_total",
			Help:      "Total number of watch events received by type",
		},
		[]string{"type"},
	)

	watchReconnectAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "iacaws",
			Subsystem: "watch",
			Name:      "reconnect_attempts_total",
			Help:      "Total number of resubscription attempts",
		},
	)

	watchSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "iacaws",
			Subsystem: "watch",
			Name:      "skipped_updates_total",
			Help:      "Total number of Modified events skipped because the generation was already observed",
		},
	)

	watchDispatchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "iacaws",
			Subsystem: "watch",
			Name:      "dispatch_errors_total",
			Help:      "Total number of reconciliations that could not be handed to the worker pool",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		watchState,
		watchEventsTotal,
		watchReconnectAttemptsTotal,
		watchSkippedTotal,
		watchDispatchErrorsTotal,
	)
}

func (s *Supervisor) recordState(state State) {
	if !s.enableMetrics {
		return
	}
	watchState.Set(float64(state))
}

func (s *Supervisor) recordEvent(t EventType) {
	if !s.enableMetrics {
		return
	}
	watchEventsTotal.WithLabelValues(string(t)).Inc()
}

func (s *Supervisor) recordReconnectAttempt() {
	if !s.enableMetrics {
		return
	}
	watchReconnectAttemptsTotal.Inc()
}

func (s *Supervisor) recordSkipped() {
	if !s.enableMetrics {
		return
	}
	watchSkippedTotal.Inc()
}

func (s *Supervisor) recordDispatchError() {
	if !s.enableMetrics {
		return
	}
	watchDispatchErrorsTotal.Inc()
}
