package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Each collector file (http, wizard, backend, payment, jobs, admin, lookups,
// build) queues its collectors from init; cmd/app hands them to a registry
// once at startup.
var (
	once    sync.Once
	pending []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister registers the portal's collectors on the default registry.
func MustRegister() { MustRegisterWith(prometheus.DefaultRegisterer) }

// MustRegisterWith registers the portal's collectors on reg. Only the first
// call of either function has an effect.
func MustRegisterWith(reg prometheus.Registerer) {
	once.Do(func() {
		if len(pending) > 0 {
			reg.MustRegister(pending...)
		}
	})
}

// norm keeps label values low-cardinality: trimmed, lower case, and
// "unknown" when blank.
func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
