package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftlevel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nftlevel_http_response_time_seconds",
			Help:    "Histogram of HTTP response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftlevel_purchases_total",
			Help: "Recorded purchases by outcome",
		},
		[]string{"result"},
	)

	CommissionsDistributed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftlevel_commissions_distributed_total",
			Help: "Immediate reward amount credited, by kind",
		},
		[]string{"kind"},
	)

	AccrualRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftlevel_accrual_records_total",
			Help: "Accrual records handled by the tick, by outcome",
		},
		[]string{"outcome"},
	)

	AccrualDisbursed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nftlevel_accrual_disbursed_total",
			Help: "Total amount disbursed by accrual ticks",
		},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nftlevel_job_duration_seconds",
			Help:    "Batch job run duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftlevel_job_runs_total",
			Help: "Batch job runs by result",
		},
		[]string{"job", "result"},
	)

	DeactivationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftlevel_deactivation_events_total",
			Help: "Watchdog state transitions",
		},
		[]string{"event"},
	)
)
