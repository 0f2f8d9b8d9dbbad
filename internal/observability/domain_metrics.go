package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "convdb_sessions_active",
			Help: "Current number of live conversational sessions.",
		},
	)
	sessionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "convdb_sessions_created_total",
			Help: "Total number of sessions created from dataset uploads.",
		},
	)
	sessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "convdb_sessions_expired_total",
			Help: "Total number of sessions closed by the idle sweeper.",
		},
	)
	datasetRowsLoaded = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "convdb_dataset_rows_loaded",
			Help:    "Row counts of datasets materialized into session tables.",
			Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
		},
	)
	translateRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convdb_translate_requests_total",
			Help: "Total number of completion-service translation calls by status.",
		},
		[]string{"status"},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convdb_query_executions_total",
			Help: "Total number of SQL executions against session tables by outcome.",
		},
		[]string{"outcome"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "convdb_query_duration_seconds",
			Help:    "SQL execution latency against session tables.",
			Buckets: prometheus.DefBuckets,
		},
	)
	submissionsBlockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convdb_submissions_blocked_total",
			Help: "Total number of submissions rejected before the pipeline ran.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		sessionsActive,
		sessionsCreatedTotal,
		sessionsExpiredTotal,
		datasetRowsLoaded,
		translateRequestsTotal,
		queryExecutionsTotal,
		queryDurationSeconds,
		submissionsBlockedTotal,
	)
}

func SetActiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	sessionsActive.Set(float64(count))
}

func ObserveSessionCreated(rows int) {
	sessionsCreatedTotal.Inc()
	datasetRowsLoaded.Observe(float64(rows))
}

func ObserveSessionsExpired(count int) {
	if count > 0 {
		sessionsExpiredTotal.Add(float64(count))
	}
}

func ObserveTranslation(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	translateRequestsTotal.WithLabelValues(status).Inc()
}

func ObserveQueryExecution(outcome string, elapsed time.Duration) {
	queryExecutionsTotal.WithLabelValues(outcome).Inc()
	queryDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveBlockedSubmission(reason string) {
	submissionsBlockedTotal.WithLabelValues(reason).Inc()
}
