package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/infra/logging"
	"pals-portal/internal/infra/metrics"
	"pals-portal/internal/usecase"
)

// handlePay hands the reviewed run to the gateway. Nothing is recorded and
// no redirect happens unless the backend returned a url and a reference.
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request, flow model.Flow) {
	ctx := r.Context()
	stateID := wizardStateID(r, flow.Kind)

	h, err := s.Payments.Initiate(ctx, sessionID(r), flow, stateID)
	if err != nil {
		if errors.Is(err, domain.ErrMissingState) {
			s.redirectToEntry(w, r, flow)
			return
		}
		metrics.IncHandoff(string(flow.Service), "", "failed")
		l := logging.With(ctx, s.log)
		l.Warn().Err(err).Msg("payment initiation failed")

		state, _ := s.Wizard.Load(ctx, flow, stateID, model.StepReview)
		if state == nil {
			s.redirectToEntry(w, r, flow)
			return
		}
		fallback := s.Translator.T("error.initiate_payment")
		if errors.Is(err, domain.ErrAmountNotAvailable) {
			fallback = s.Translator.T("error.quote")
		}
		d := s.stepData(r, flow, model.StepReview, state)
		d.Message = usecase.UserMessage(err, fallback)
		s.render(w, r, http.StatusUnprocessableEntity, "review", d)
		return
	}

	metrics.IncHandoff(string(h.Service), string(h.Mode), "ok")
	if h.Mode == model.PaymentModePopup {
		s.render(w, r, http.StatusOK, "popup", &pageData{
			Title:  s.Translator.T("payment.popup_title"),
			Flow:   &flow,
			PayURL: h.AuthorizationURL,
		})
		return
	}
	http.Redirect(w, r, h.AuthorizationURL, http.StatusSeeOther)
}

func callbackParams(get func(string) string) model.CallbackParams {
	return model.CallbackParams{
		Reference: strings.TrimSpace(get("reference")),
		Trxref:    strings.TrimSpace(get("trxref")),
	}
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	res, err := s.Callbacks.Resolve(r.Context(), sessionID(r), callbackParams(r.URL.Query().Get))
	s.renderResolution(w, r, "callback", res, err)
}

func (s *Server) handleCallbackRetry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderResolution(w, r, "callback", nil, err)
		return
	}
	res, err := s.Callbacks.Resolve(r.Context(), sessionID(r), callbackParams(r.PostForm.Get))
	s.renderResolution(w, r, "retry", res, err)
}

// handleBackendRedirect serves /payment/redirect/{segment}/{requestID}, the
// return url some backend services hand to the gateway themselves.
func (s *Server) handleBackendRedirect(w http.ResponseWriter, r *http.Request) {
	res, err := s.Callbacks.ResolveRedirect(r.Context(), sessionID(r),
		chi.URLParam(r, "segment"), chi.URLParam(r, "requestID"), callbackParams(r.URL.Query().Get))
	if errors.Is(err, domain.ErrUnknownService) {
		s.handleNotFound(w, r)
		return
	}
	s.renderResolution(w, r, "redirect", res, err)
}

// renderResolution never fails the page: infrastructure errors show as a
// pending check the citizen can repeat.
func (s *Server) renderResolution(w http.ResponseWriter, r *http.Request, entry string, res *model.Resolution, err error) {
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("entry", entry).Msg("resolve payment")
		res = &model.Resolution{Status: model.ResolutionPending}
	}
	if res == nil {
		res = &model.Resolution{Status: model.ResolutionMissing}
	}
	metrics.IncResolve(entry, string(res.Status))

	d := &pageData{Title: s.Translator.T("callback." + string(res.Status)), Result: res}
	switch res.Status {
	case model.ResolutionSuccess:
		d.Refresh = int(s.opts.SuccessDelay / time.Second)
	case model.ResolutionPending:
		if res.Message == "" {
			res.Message = s.Translator.T("error.verify_payment")
		}
	}
	s.render(w, r, http.StatusOK, "callback", d)
}

func (s *Server) handlePopupClosed(w http.ResponseWriter, r *http.Request) {
	if err := s.Popups.MarkClosed(r.Context(), sessionID(r)); err != nil {
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Msg("mark popup closed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unavailable"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type outcomeResponse struct {
	Done     bool              `json:"done"`
	TimedOut bool              `json:"timedOut,omitempty"`
	Result   *model.Resolution `json:"result,omitempty"`
}

// handlePopupOutcome is polled by the popup page until the watcher has
// finished.
func (s *Server) handlePopupOutcome(w http.ResponseWriter, r *http.Request) {
	o, err := s.Popups.GetOutcome(r.Context(), sessionID(r))
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusAccepted, outcomeResponse{})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse{Done: true, TimedOut: o.TimedOut, Result: o.Resolution})
}

func (s *Server) handlePopupResult(w http.ResponseWriter, r *http.Request) {
	o, err := s.Popups.GetOutcome(r.Context(), sessionID(r))
	if errors.Is(err, domain.ErrNotFound) {
		// still running or never started: fall back to a direct check
		res, rerr := s.Callbacks.Resolve(r.Context(), sessionID(r), model.CallbackParams{})
		s.renderResolution(w, r, "popup", res, rerr)
		return
	}
	if err != nil {
		s.renderResolution(w, r, "popup", nil, err)
		return
	}
	res := o.Resolution
	if o.TimedOut || res == nil {
		res = &model.Resolution{Status: model.ResolutionPending, Message: s.Translator.T("payment.popup_timeout")}
	}
	s.renderResolution(w, r, "popup", res, nil)
}
