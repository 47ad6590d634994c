package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentledger_requests_total",
			Help: "Total number of API requests per route, method and status code",
		},
		[]string{"path", "method", "code"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rentledger_request_duration_seconds",
			Help:    "API request duration in seconds per route and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	BillingRecordsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rentledger_billing_records_generated_total",
			Help: "Total number of billing records generated",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rentledger_active_sessions",
			Help: "Number of users with a live synchronized cache session",
		},
	)
)

// ObserveRequest records one finished API request
func ObserveRequest(path, method, code string, startedAt time.Time) {
	RequestsTotal.WithLabelValues(path, method, code).Inc()
	RequestDurationSeconds.WithLabelValues(path, method).Observe(time.Since(startedAt).Seconds())
}

// IncBillingGenerated counts one generated billing record
func IncBillingGenerated() {
	BillingRecordsGeneratedTotal.Inc()
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rentledger_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rentledger_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentledger_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

// UpdateJobMetrics records one completed scheduled job run
func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
