package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "pals",
		Name:      "portal_build_info",
		Help:      "Always 1; labels carry the running portal build.",
	},
	[]string{"version", "commit", "go_version"},
)

// SetBuildInfo publishes the version stamped in at link time.
func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
}
