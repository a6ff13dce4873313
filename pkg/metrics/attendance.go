package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Rejected attempts use the lowercased rejection reason as their outcome.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// AttendanceMetrics counts check-in and check-out attempts.
type AttendanceMetrics struct {
	events *prometheus.CounterVec
}

// NewAttendanceMetrics registers the attendance counters on the provided registerer.
func NewAttendanceMetrics(reg prometheus.Registerer) *AttendanceMetrics {
	if reg == nil {
		return &AttendanceMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logbook",
		Name:      "attendance_events_total",
		Help:      "Attendance state transitions and rejections by kind, action and outcome.",
	}, []string{"kind", "action", "outcome"})
	reg.MustRegister(events)
	return &AttendanceMetrics{events: events}
}

// Observe increments the counter for one attempt.
func (m *AttendanceMetrics) Observe(kind, action, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(kind), normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
