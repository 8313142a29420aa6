package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeFinished  = "finished"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "langsheet",
		Name:      "jobs_total",
		Help:      "Translation jobs by outcome",
	}, []string{"outcome"})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "langsheet",
		Name:      "job_steps_total",
		Help:      "Column steps executed by kind",
	}, []string{"kind"})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "langsheet",
		Name:      "job_duration_seconds",
		Help:      "Wall time of finished translation jobs",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	jobRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "langsheet",
		Name:      "job_rows",
		Help:      "Rows per translation job",
		Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
	})
)
