package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsIngested counts records inserted by the crawler.
	RecordsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updates_records_ingested_total",
		Help: "Number of new records saved to the store.",
	})

	// EventsAccepted counts change events that passed the notification filter.
	EventsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updates_change_events_accepted_total",
		Help: "Number of change events considered notification-worthy.",
	})

	// EventsDropped counts change events rejected by the notification filter.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updates_change_events_dropped_total",
		Help: "Number of change events dropped as no-op updates.",
	})

	// NotificationsSent counts successfully delivered webhook messages.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updates_notifications_sent_total",
		Help: "Number of webhook notifications delivered.",
	})

	// NotificationsFailed counts per-item dispatch failures.
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updates_notifications_failed_total",
		Help: "Number of notification items that failed to process.",
	})

	// DigestRuns counts digest generations by outcome.
	DigestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "updates_digest_runs_total",
		Help: "Number of digest generation runs by outcome.",
	}, []string{"status"})
)
