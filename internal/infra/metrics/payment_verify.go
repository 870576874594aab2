package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		PaymentResolveTotal,
		PaymentHandoffTotal,
		PopupWatchTotal,
	)
}

var (
	// Resolutions of a gateway return grouped by entry point and status.
	// entry: callback|redirect|retry|popup
	// status: success|failed|pending|missing|error
	PaymentResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_resolve_total",
			Help: "Payment callback resolutions by entry point and status.",
		},
		[]string{"entry", "status"},
	)

	// Handoffs to the gateway grouped by service, mode and result.
	PaymentHandoffTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_handoff_total",
			Help: "Payment initiations by service, handoff mode and result.",
		},
		[]string{"service", "mode", "result"},
	)

	// Popup watcher exits. result: closed|timeout|cancelled
	PopupWatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_popup_watch_total",
			Help: "Popup payment watches by how they ended.",
		},
		[]string{"result"},
	)
)

func IncResolve(entry, status string) {
	PaymentResolveTotal.WithLabelValues(norm(entry), norm(status)).Inc()
}

func IncHandoff(service, mode, result string) {
	PaymentHandoffTotal.WithLabelValues(norm(service), norm(mode), norm(result)).Inc()
}

func IncPopupWatch(result string) {
	PopupWatchTotal.WithLabelValues(norm(result)).Inc()
}
