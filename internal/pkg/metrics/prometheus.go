package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Rule evaluation metrics
	ruleEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwatch",
			Subsystem: "rules",
			Name:      "evaluations_total",
			Help:      "Total number of rule evaluations",
		},
		[]string{"rule_type", "result"},
	)

	evaluationSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "peerwatch",
			Subsystem: "rules",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a full rule evaluation sweep",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	alertsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwatch",
			Subsystem: "alerts",
			Name:      "generated_total",
			Help:      "Total number of alerts generated by evaluators",
		},
		[]string{"rule_type", "severity"},
	)

	alertTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwatch",
			Subsystem: "alerts",
			Name:      "transitions_total",
			Help:      "Total number of alert lifecycle transitions",
		},
		[]string{"to_status"},
	)

	// Notification metrics
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwatch",
			Subsystem: "notifications",
			Name:      "dispatched_total",
			Help:      "Total number of notification dispatch attempts",
		},
		[]string{"channel", "status"},
	)

	notificationRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "peerwatch",
			Subsystem: "notifications",
			Name:      "retries_total",
			Help:      "Total number of notification retry attempts",
		},
	)
)

// RecordRuleEvaluation records one rule evaluation outcome
func RecordRuleEvaluation(ruleType, result string) {
	ruleEvaluationsTotal.WithLabelValues(ruleType, result).Inc()
}

// RecordSweepDuration records the duration of a full evaluation sweep
func RecordSweepDuration(d time.Duration) {
	evaluationSweepDuration.Observe(d.Seconds())
}

// RecordAlertGenerated records a generated alert
func RecordAlertGenerated(ruleType, severity string) {
	alertsGeneratedTotal.WithLabelValues(ruleType, severity).Inc()
}

// RecordAlertTransition records a lifecycle transition
func RecordAlertTransition(toStatus string) {
	alertTransitionsTotal.WithLabelValues(toStatus).Inc()
}

// RecordNotification records a dispatch attempt outcome
func RecordNotification(channel, status string) {
	notificationsTotal.WithLabelValues(channel, status).Inc()
}

// RecordNotificationRetry records a retry attempt
func RecordNotificationRetry() {
	notificationRetriesTotal.Inc()
}

// Handler returns the prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
