package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/infra/logging"
	"pals-portal/internal/infra/metrics"
	"pals-portal/internal/usecase"
)

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "catalog", &pageData{
		Title: s.Translator.T("app.title"),
		Flows: model.Flows(),
	})
}

// lookupFlow resolves {flow}; unknown flows get the coming-soon page.
func (s *Server) lookupFlow(w http.ResponseWriter, r *http.Request) (model.Flow, bool) {
	flow, ok := model.LookupFlow(chi.URLParam(r, "flow"))
	if !ok {
		s.handleNotFound(w, r)
	}
	return flow, ok
}

// handleStartFlow begins a fresh run: whatever the citizen had in this flow
// is dropped.
func (s *Server) handleStartFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.lookupFlow(w, r)
	if !ok {
		return
	}
	if id := wizardStateID(r, flow.Kind); id != "" {
		if err := s.Wizard.Discard(r.Context(), id); err != nil {
			l := logging.With(r.Context(), s.log)
			l.Warn().Err(err).Msg("discard wizard state")
		}
		s.clearWizardCookie(w, flow.Kind)
	}
	http.Redirect(w, r, flow.EntryPath(), http.StatusSeeOther)
}

func (s *Server) redirectToEntry(w http.ResponseWriter, r *http.Request, flow model.Flow) {
	metrics.IncGuardRedirect(string(flow.Kind))
	http.Redirect(w, r, flow.EntryPath(), http.StatusSeeOther)
}

func (s *Server) stepData(r *http.Request, flow model.Flow, step model.StepID, state *model.WizardState) *pageData {
	d := &pageData{
		Title: flow.StepTitle(step) + " · " + flow.Title,
		Flow:  &flow,
		Step:  step,
		Steps: model.Stepper(flow.Descriptors(), r.URL.Path),
		State: state,
		Form:  formFromState(step, state),
	}
	if step == model.StepOwnerInformation || step == model.StepNextOwnerInformation {
		if states, err := s.Lookups.States(r.Context()); err == nil {
			d.States = states
		}
	}
	return d
}

func (s *Server) handleStepPage(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.lookupFlow(w, r)
	if !ok {
		return
	}
	step := model.StepID(chi.URLParam(r, "step"))
	if !flow.Has(step) {
		s.handleNotFound(w, r)
		return
	}
	ctx := logging.WithFlow(r.Context(), string(flow.Kind))
	stateID := wizardStateID(r, flow.Kind)

	if step == model.StepReview {
		s.renderReview(w, r.WithContext(ctx), flow, stateID)
		return
	}
	state, err := s.Wizard.Load(ctx, flow, stateID, step)
	if errors.Is(err, domain.ErrMissingState) {
		s.redirectToEntry(w, r, flow)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageName(step), s.stepData(r, flow, step, state))
}

// renderReview fetches the amount due before showing it; the same integer
// is what the payment handoff sends.
func (s *Server) renderReview(w http.ResponseWriter, r *http.Request, flow model.Flow, stateID string) {
	ctx := r.Context()
	state, err := s.Wizard.PrepareReview(ctx, flow, stateID)
	if errors.Is(err, domain.ErrMissingState) {
		s.redirectToEntry(w, r, flow)
		return
	}
	if err != nil {
		// show what we have, without an amount
		loaded, lerr := s.Wizard.Load(ctx, flow, stateID, model.StepReview)
		if lerr != nil || loaded == nil {
			s.redirectToEntry(w, r, flow)
			return
		}
		d := s.stepData(r, flow, model.StepReview, loaded)
		d.Message = usecase.UserMessage(err, s.Translator.T("error.quote"))
		s.render(w, r, http.StatusOK, "review", d)
		return
	}
	s.render(w, r, http.StatusOK, "review", s.stepData(r, flow, model.StepReview, state))
}

func (s *Server) handleStepSubmit(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.lookupFlow(w, r)
	if !ok {
		return
	}
	step := model.StepID(chi.URLParam(r, "step"))
	if !flow.Has(step) || step == model.StepValuationResult {
		s.handleNotFound(w, r)
		return
	}
	r = r.WithContext(logging.WithFlow(r.Context(), string(flow.Kind)))
	if step == model.StepReview {
		s.handlePay(w, r, flow)
		return
	}
	ctx := r.Context()
	stateID := wizardStateID(r, flow.Kind)

	in, err := parseStep(w, r, flow, step)
	if err != nil {
		ve, ok := model.AsValidationErrors(err)
		switch {
		case ok:
			metrics.IncWizardStep(string(flow.Kind), string(step), "invalid")
		case errors.Is(err, errUploadTooLarge):
			ve = model.ValidationErrors{"form": "File must be 5MB or smaller"}
		default:
			ve = model.ValidationErrors{"form": s.Translator.T("error.unexpected")}
		}
		s.rerender(w, r, flow, step, stateID, ve, "")
		return
	}

	next, err := s.Wizard.Submit(ctx, flow, stateID, in)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMissingState):
		s.redirectToEntry(w, r, flow)
		return
	default:
		if ve, ok := model.AsValidationErrors(err); ok {
			metrics.IncWizardStep(string(flow.Kind), string(step), "invalid")
			s.rerender(w, r, flow, step, stateID, ve, "")
			return
		}
		metrics.IncWizardStep(string(flow.Kind), string(step), "rejected")
		l := logging.With(ctx, s.log)
		l.Warn().Err(err).Str("step", string(step)).Msg("step rejected")
		s.rerender(w, r, flow, step, stateID, nil, usecase.UserMessage(err, s.Translator.T(actionKey(flow, step))))
		return
	}

	metrics.IncWizardStep(string(flow.Kind), string(step), "ok")
	s.setWizardCookie(w, flow.Kind, next.ID)
	target, ok := flow.Next(step)
	if !ok {
		target = next.Step
	}
	http.Redirect(w, r, flow.Path(target), http.StatusSeeOther)
}

// rerender shows the step again with the citizen's input and the errors.
func (s *Server) rerender(w http.ResponseWriter, r *http.Request, flow model.Flow, step model.StepID, stateID string, ve model.ValidationErrors, msg string) {
	state, _ := s.Wizard.Load(r.Context(), flow, stateID, step)
	d := s.stepData(r, flow, step, state)
	if r.PostForm != nil {
		d.Form = postedValues(r)
	}
	d.Errors = ve
	d.Message = msg
	s.render(w, r, http.StatusUnprocessableEntity, pageName(step), d)
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.lookupFlow(w, r)
	if !ok {
		return
	}
	step := model.StepID(chi.URLParam(r, "step"))
	if step != model.StepVerifyOTP || !flow.Has(step) {
		s.handleNotFound(w, r)
		return
	}
	ctx := r.Context()
	stateID := wizardStateID(r, flow.Kind)
	err := s.Wizard.RequestOTP(ctx, flow, stateID)
	if errors.Is(err, domain.ErrMissingState) {
		s.redirectToEntry(w, r, flow)
		return
	}

	state, _ := s.Wizard.Load(ctx, flow, stateID, step)
	d := s.stepData(r, flow, step, state)
	switch {
	case err == nil:
		phone := ""
		if state != nil {
			phone = state.OwnerPhone
		}
		d.Notice = s.Translator.T("wizard.otp_sent", phone)
	case errors.Is(err, domain.ErrRateLimited):
		d.Message = s.Translator.T("error.otp_rate_limited")
	default:
		d.Message = usecase.UserMessage(err, s.Translator.T("error.send_otp"))
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, r, status, "verify-otp", d)
}

// handleComplete is the landing page after a verified payment. The wizard
// run is over, so its state goes.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.lookupFlow(w, r)
	if !ok {
		return
	}
	if id := wizardStateID(r, flow.Kind); id != "" {
		_ = s.Wizard.Discard(r.Context(), id)
		s.clearWizardCookie(w, flow.Kind)
	}
	s.render(w, r, http.StatusOK, "complete", &pageData{
		Title:  flow.Title,
		Flow:   &flow,
		Notice: s.Translator.T("wizard.complete", flow.Title),
	})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	l := logging.With(r.Context(), s.log)
	l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	s.render(w, r, http.StatusInternalServerError, "notfound", &pageData{
		Title:   s.Translator.T("error.unexpected"),
		Message: s.Translator.T("error.unexpected"),
	})
}
