package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(lookupCacheRequests, scheduledRuns) }

var (
	lookupCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pals",
			Name:      "lookup_cache_requests_total",
			Help:      "Geography lookups served from Redis, by list and outcome.",
		},
		[]string{"cache", "result"}, // cache: geo_states|geo_lgas, result: hit|miss|error
	)

	scheduledRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pals",
			Name:      "scheduled_runs_total",
			Help:      "Periodic refresh runs, by job and outcome.",
		},
		[]string{"job", "result"},
	)
)

func IncCacheRequest(cacheName, result string) {
	lookupCacheRequests.WithLabelValues(norm(cacheName), norm(result)).Inc()
}

// IncScheduledRun records one scheduler tick; result is ok or failed.
func IncScheduledRun(job, result string) {
	scheduledRuns.WithLabelValues(norm(job), norm(result)).Inc()
}
