package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(backgroundJobsTotal, backgroundJobsDropped) }

var (
	backgroundJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_jobs_total",
			Help: "Background jobs finished by the worker pool, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)

	backgroundJobsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "background_jobs_dropped_total",
			Help: "Jobs rejected because the worker queue was full.",
		},
	)
)

func IncJob(status string) {
	backgroundJobsTotal.WithLabelValues(norm(status)).Inc()
}

func IncJobDropped() { backgroundJobsDropped.Inc() }
