package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(backendRequestDuration) }

var backendRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Latency of REST backend calls by operation and status code (0 on transport error).",
		Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
	},
	[]string{"operation", "code"},
)

func ObserveBackend(operation string, code int, d time.Duration) {
	backendRequestDuration.WithLabelValues(norm(operation), strconv.Itoa(code)).Observe(d.Seconds())
}
