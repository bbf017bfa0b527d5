// Package metrics - счётчики Prometheus, отдаются на GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studio",
		Name:      "sessions_generated_total",
		Help:      "Sessions created from weekly templates.",
	})

	GenerationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studio",
		Name:      "generation_runs_total",
		Help:      "Session generation runs by outcome.",
	}, []string{"outcome"})

	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studio",
		Name:      "session_transitions_total",
		Help:      "Session status changes by target status.",
	}, []string{"status"})

	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studio",
		Name:      "attendance_marks_total",
		Help:      "Attendance marks written.",
	}, []string{"present"})

	AttendanceRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studio",
		Name:      "attendance_rejected_total",
		Help:      "Attendance writes rejected by the session status gate.",
	})
)
