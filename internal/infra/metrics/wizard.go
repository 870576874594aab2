package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(wizardStepsTotal, wizardGuardRedirects) }

var (
	wizardStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_steps_total",
			Help: "Wizard step submissions by flow, step and result.",
		},
		[]string{"flow", "step", "result"}, // result: ok|invalid|backend_error|error
	)

	wizardGuardRedirects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_guard_redirects_total",
			Help: "Step pages opened without their earlier steps, redirected to the entry page.",
		},
		[]string{"flow"},
	)
)

func IncWizardStep(flow, step, result string) {
	wizardStepsTotal.WithLabelValues(norm(flow), norm(step), norm(result)).Inc()
}

func IncGuardRedirect(flow string) {
	wizardGuardRedirects.WithLabelValues(norm(flow)).Inc()
}
