// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReviewEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grade_review_events_total",
			Help: "Total number of grade review events appended",
		},
		[]string{"event"},
	)

	VersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grade_review_version_conflicts_total",
			Help: "Transactions retried after losing an event version race",
		},
	)

	ImportedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grade_import_rows_total",
			Help: "Rows applied by grade imports",
		},
		[]string{"op"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Notifications that could not be published",
		},
		[]string{"type"},
	)

	FinalPointHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grade_final_point",
			Help:    "Distribution of points written by finalized reviews",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
		[]string{"course"},
	)

	BoardExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grade_board_exports_total",
			Help: "Grade boards written by the exporter",
		},
		[]string{"status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
