package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
)

const namespace = "radassist"

// AssistantMetrics counts conversation activity. It is an assistant.Sink so
// the engine feeds it directly.
type AssistantMetrics struct {
	turnsTotal       *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	escalationsTotal *prometheus.CounterVec
	acksTotal        prometheus.Counter
	phaseChanges     *prometheus.CounterVec
	demoRuns         *prometheus.CounterVec
	rejectedTotal    *prometheus.CounterVec
	sinkDrops        *prometheus.CounterVec
}

var _ assistant.Sink = (*AssistantMetrics)(nil)

// NewAssistantMetrics registers the collectors on reg, or the default
// registerer when reg is nil.
func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Completed agent turns",
		}, []string{"intent", "outcome"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "turn_duration_seconds",
			Help:      "Time from submit to the end of the streamed reply",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"intent"}),
		escalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "escalations_total",
			Help:      "Urgent notifications raised",
		}, []string{"kind"}),
		acksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "acknowledgements_total",
			Help:      "Notifications acknowledged on the dashboard",
		}),
		phaseChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "phase_changes_total",
			Help:      "Phase switches",
		}, []string{"phase"}),
		demoRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "demo_runs_total",
			Help:      "Demo script runs by lifecycle event",
		}, []string{"event"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "rejected_submits_total",
			Help:      "Submits ignored because the assistant was busy",
		}, []string{"reason"}),
		sinkDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sinks",
			Name:      "dropped_events_total",
			Help:      "Events dropped by slow display or bus sinks",
		}, []string{"sink"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnDuration, m.escalationsTotal, m.acksTotal,
		m.phaseChanges, m.demoRuns, m.rejectedTotal, m.sinkDrops)
	return m
}

// Publish implements assistant.Sink.
func (m *AssistantMetrics) Publish(ev assistant.Event) {
	if m == nil {
		return
	}
	switch ev.Kind {
	case assistant.EventTurnCompleted:
		if ev.Turn == nil {
			return
		}
		m.turnsTotal.WithLabelValues(string(ev.Turn.Intent), string(ev.Turn.Outcome)).Inc()
		m.turnDuration.WithLabelValues(string(ev.Turn.Intent)).Observe(ev.Turn.Duration.Seconds())
	case assistant.EventNotificationAdded:
		m.escalationsTotal.WithLabelValues(string(ev.Escalation)).Inc()
	case assistant.EventNotificationAcknowledged:
		m.acksTotal.Inc()
	case assistant.EventPhaseChanged:
		m.phaseChanges.WithLabelValues(ev.Snapshot.Phase.Roman()).Inc()
	case assistant.EventDemoStarted:
		m.demoRuns.WithLabelValues("started").Inc()
	case assistant.EventDemoCompleted:
		m.demoRuns.WithLabelValues("completed").Inc()
	case assistant.EventSubmitRejected:
		m.rejectedTotal.WithLabelValues(ev.Reason).Inc()
	}
}

// ObserveDropped counts an event a sink had to discard.
func (m *AssistantMetrics) ObserveDropped(sink string) {
	if m == nil {
		return
	}
	m.sinkDrops.WithLabelValues(sink).Inc()
}
