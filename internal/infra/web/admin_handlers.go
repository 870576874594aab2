package web

import (
	"errors"
	"net/http"
	"strings"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/infra/logging"
	"pals-portal/internal/infra/metrics"
	"pals-portal/internal/usecase"
)

func (s *Server) handleAdminLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.ParseFromRequest(r); err == nil {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "admin-login", &pageData{Title: s.Translator.T("admin.login_title")})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	in := model.LoginInput{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}
	d := &pageData{Title: s.Translator.T("admin.login_title"), Form: map[string]string{"email": in.Email}}

	sess, err := s.Admin.Login(r.Context(), in)
	if err != nil {
		if ve, ok := model.AsValidationErrors(err); ok {
			d.Errors = ve
		} else {
			metrics.IncAdminLogin("failed")
			d.Message = s.Translator.T("error.login")
			if !errors.Is(err, domain.ErrUnauthorized) {
				d.Message = usecase.UserMessage(err, s.Translator.T("error.unexpected"))
			}
		}
		s.render(w, r, http.StatusUnauthorized, "admin-login", d)
		return
	}
	if _, err := s.Auth.Mint(w, sess); err != nil {
		s.internalError(w, r, err)
		return
	}
	metrics.IncAdminLogin("ok")
	l := logging.With(r.Context(), s.log)
	l.Info().Str("admin", logging.Redact(sess.Email, false)).Msg("admin signed in")
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.Clear(w)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	claims := adminClaims(r)
	token, err := s.Auth.BackendToken(claims)
	if err != nil {
		s.Auth.Clear(w)
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	d := &pageData{Title: s.Translator.T("admin.dashboard_title"), Admin: claims}
	stats, err := s.Admin.Dashboard(r.Context(), token)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		s.Auth.Clear(w)
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	case err != nil:
		d.Message = usecase.UserMessage(err, s.Translator.T("error.dashboard"))
	default:
		d.Stats = stats
	}
	s.render(w, r, http.StatusOK, "admin-dashboard", d)
}

// handleLGAs feeds the LGA select of the owner forms.
func (s *Server) handleLGAs(w http.ResponseWriter, r *http.Request) {
	lgas, err := s.Lookups.LGAs(r.Context(), r.URL.Query().Get("state"))
	if errors.Is(err, domain.ErrInvalidArgument) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "state is required"})
		return
	}
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Msg("lga lookup")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": usecase.UserMessage(err, s.Translator.T("error.unexpected"))})
		return
	}
	if lgas == nil {
		lgas = []model.LGA{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": lgas})
}
