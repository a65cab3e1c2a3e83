// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the rewards engine.
var (
	// Counters.
	LedgerMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_ledger_mutations_total",
			Help: "Total number of balance mutations applied",
		},
		[]string{"subject", "source", "direction"},
	)

	LedgerAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_ledger_amount_total",
			Help: "Absolute ledger amount recorded, by direction",
		},
		[]string{"subject", "source", "direction"},
	)

	ClampsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_clamps_total",
			Help: "Total number of decrements floor-clamped at zero",
		},
		[]string{"subject", "counter"},
	)

	ClampShortfallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_clamp_shortfall_total",
			Help: "Amount that could not be removed because a counter hit zero",
		},
		[]string{"subject", "counter"},
	)

	PartialFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_partial_failures_total",
			Help: "Steps of a multi-step award or revocation that failed",
		},
		[]string{"operation", "step"},
	)

	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_actions_total",
			Help: "Total number of reward actions dispatched",
		},
		[]string{"action", "status"},
	)

	ResetJobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reset_job_runs_total",
			Help: "Total number of period reset runs",
		},
		[]string{"job", "status"},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded to users",
		},
		[]string{"kind"},
	)

	AchievementsAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "club_achievements_awarded_total",
			Help: "Total number of achievements awarded to clubs",
		},
	)

	AnnouncementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reset_announcements_total",
			Help: "Total number of reset announcements sent to Mattermost",
		},
		[]string{"status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	// Gauges.
	ResetJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reset_job_last_run_timestamp",
			Help: "Timestamp of the last successful reset run",
		},
		[]string{"job"},
	)

	ResetSubjectsReset = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reset_job_subjects_reset",
			Help: "Number of subjects whose period counter was zeroed by the last run",
		},
		[]string{"job"},
	)

	// Histograms.
	ResetJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reset_job_duration_seconds",
			Help:    "Duration of period reset runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"job"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	EventAwardPoints = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "event_award_points",
			Help:    "Club points awarded per completed event",
			Buckets: prometheus.LinearBuckets(0, 50, 12), // 0 to 550 points
		},
	)
)

// Direction labels for ledger metrics.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Helper functions to record metrics.

// RecordLedgerMutation records one applied mutation and its ledger amount.
func RecordLedgerMutation(subject, source string, amount int64) {
	direction := DirectionCredit
	if amount < 0 {
		direction = DirectionDebit
		amount = -amount
	}
	LedgerMutationsTotal.WithLabelValues(subject, source, direction).Inc()
	LedgerAmountTotal.WithLabelValues(subject, source, direction).Add(float64(amount))
}

// RecordClamp records a floor clamp and the amount it swallowed.
func RecordClamp(subject, counter string, shortfall int64) {
	ClampsTotal.WithLabelValues(subject, counter).Inc()
	ClampShortfallTotal.WithLabelValues(subject, counter).Add(float64(shortfall))
}

// RecordPartialFailure records a failed step of a multi-step operation.
func RecordPartialFailure(operation, step string) {
	PartialFailuresTotal.WithLabelValues(operation, step).Inc()
}

// RecordAction records a dispatched reward action.
func RecordAction(action, status string) {
	ActionsTotal.WithLabelValues(action, status).Inc()
}

// RecordResetJobRun records a reset run outcome.
func RecordResetJobRun(job, status string) {
	ResetJobRunsTotal.WithLabelValues(job, status).Inc()
}

// SetResetJobLastRun stamps the last successful run.
func SetResetJobLastRun(job string) {
	ResetJobLastRun.WithLabelValues(job).SetToCurrentTime()
}

// SetResetSubjectsReset records how many subjects the last run zeroed.
func SetResetSubjectsReset(job string, count int64) {
	ResetSubjectsReset.WithLabelValues(job).Set(float64(count))
}

// ObserveResetJobDuration records the duration of a reset run.
func ObserveResetJobDuration(job string, seconds float64) {
	ResetJobDuration.WithLabelValues(job).Observe(seconds)
}

// RecordBadgesAwarded records badges issued by kind.
func RecordBadgesAwarded(kind string, count int) {
	BadgesAwardedTotal.WithLabelValues(kind).Add(float64(count))
}

// RecordAchievementsAwarded records club achievements issued.
func RecordAchievementsAwarded(count int) {
	AchievementsAwardedTotal.Add(float64(count))
}

// RecordAnnouncement records a Mattermost announcement attempt.
func RecordAnnouncement(status string) {
	AnnouncementsTotal.WithLabelValues(status).Inc()
}

// ObserveEventAward records the club total awarded for an event.
func ObserveEventAward(points int64) {
	EventAwardPoints.Observe(float64(points))
}

// ObserveHTTPRequest records one served request. route is the matched pattern, not the raw path.
func ObserveHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
