// Package metrics instruments the exec apply engine (C7) and response
// dispatcher (C8) with Prometheus counters/gauges, following the
// observability shape of kedacore-keda's pkg/prommetrics and
// NVIDIA/aistore's pkg/stats from the retrieval pack: a small struct of
// pre-registered vectors, constructed once and passed to the
// components that increment them, rather than a package-level global.
// This upgrades the teacher's own indirect, log-only
// prometheus/common dependency into real instrumentation
// (SPEC_FULL.md §10); it is ambient observability, not a Non-goal.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every vector the broker exposes. A single instance is
// shared across every component on a node (spec §5: one singleton per
// process, mutated only on the poll loop, so no extra synchronization
// is needed beyond what prometheus's own vectors already provide).
type Metrics struct {
	ExecApplied   *prometheus.CounterVec
	ExecErrors    *prometheus.CounterVec
	QueueMessages *prometheus.GaugeVec
	QueueRefCount *prometheus.GaugeVec
	DispatchTotal *prometheus.CounterVec
	TrackingSent  prometheus.Counter
	SyncInFlight  prometheus.Gauge
}

// New builds a Metrics bundle and registers every vector with reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests, multiple
// nodes in one process) or prometheus.DefaultRegisterer for a real
// deployment.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExecApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msg",
			Subsystem: "exec",
			Name:      "applied_total",
			Help:      "Number of exec records applied, by operation.",
		}, []string{"op"}),
		ExecErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msg",
			Subsystem: "exec",
			Name:      "errors_total",
			Help:      "Number of exec records that produced a non-OK response, by operation and error code.",
		}, []string{"op", "code"}),
		QueueMessages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "msg",
			Subsystem: "queue",
			Name:      "messages",
			Help:      "Number of messages currently pending on a queue, by priority.",
		}, []string{"queue", "priority"}),
		QueueRefCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "msg",
			Subsystem: "queue",
			Name:      "refcount",
			Help:      "Number of live open handles referencing a queue.",
		}, []string{"queue"}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msg",
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Number of frames written to client connections, by kind.",
		}, []string{"kind"}),
		TrackingSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msg",
			Subsystem: "tracking",
			Name:      "notifications_total",
			Help:      "Number of queue-group tracking notifications dispatched.",
		}),
		SyncInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "msg",
			Subsystem: "membership",
			Name:      "sync_in_flight",
			Help:      "1 while this node's sync state machine is in SYNCING, 0 in STEADY.",
		}),
	}
	reg.MustRegister(m.ExecApplied, m.ExecErrors, m.QueueMessages, m.QueueRefCount, m.DispatchTotal, m.TrackingSent, m.SyncInFlight)
	return m
}

// ObserveQueue updates the per-queue gauges after a mutation, read
// straight off the replicated Queue/usage snapshot so the metric never
// diverges from the actual store state (spec §4.2's per-priority
// usage triple).
func (m *Metrics) ObserveQueue(queue string, refCount uint32, priorityCounts [4]int) {
	m.QueueRefCount.WithLabelValues(queue).Set(float64(refCount))
	for p, count := range priorityCounts {
		m.QueueMessages.WithLabelValues(queue, priorityLabel(p)).Set(float64(count))
	}
}

func priorityLabel(p int) string {
	labels := [...]string{"0", "1", "2", "3"}
	if p >= 0 && p < len(labels) {
		return labels[p]
	}
	return "unknown"
}
