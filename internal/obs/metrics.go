// Copyright 2025 James Ross
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobs_completed_total",
		Help: "Total number of jobs completed",
	})
	JobsAdvanced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobs_advanced_total",
		Help: "Total number of jobs advanced to a next queue on completion",
	})
	JobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobs_failed_total",
		Help: "Total number of failed jobs",
	})
	JobsRetried = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobs_retried_total",
		Help: "Total number of job retries",
	})
	HeartbeatsExtended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "heartbeats_extended_total",
		Help: "Total number of successful lock extensions",
	})
	DependencyReleases = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dependency_releases_total",
		Help: "Total number of dependents released by completion cascades",
	})
	CompletedGCEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "completed_gc_evicted_total",
		Help: "Total number of completed jobs evicted by retention GC",
	})
	QueueLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "queue_length",
		Help: "Current size of each queue view",
	}, []string{"queue", "view"})
)

func init() {
	prometheus.MustRegister(
		JobsCompleted,
		JobsAdvanced,
		JobsFailed,
		JobsRetried,
		HeartbeatsExtended,
		DependencyReleases,
		CompletedGCEvicted,
		QueueLength,
	)
}
