package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(adminLoginTotal) }

var adminLoginTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_login_total",
		Help: "Admin login attempts by outcome.",
	},
	[]string{"status"}, // 'ok', 'invalid', 'unauthorized', 'error'
)

func IncAdminLogin(status string) {
	adminLoginTotal.WithLabelValues(norm(status)).Inc()
}
