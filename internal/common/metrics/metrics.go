package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointment_events_total",
			Help: "Total number of appointment lifecycle events processed",
		},
		[]string{"action", "outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification attempts by recipient role and status",
		},
		[]string{"recipient", "event_type", "status"},
	)

	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "event_processing_duration_seconds",
			Help: "Duration of appointment event processing in seconds",
		},
		[]string{"action"},
	)

	RemindersSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_sweeps_total",
			Help: "Total number of reminder sweeps executed",
		},
	)
)
