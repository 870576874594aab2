package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pals-portal/internal/domain/model"
	"pals-portal/internal/infra/logging"
)

const (
	sessionCookie      = "pals_session"
	wizardCookiePrefix = "pals_wizard_"
)

type sessionKey struct{}

// Session makes sure every browser carries a session id. The pending
// payment record and the popup signals are keyed by it.
func Session(secure bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(sessionCookie); err == nil && validSessionID(c.Value) {
				sid = c.Value
			} else {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), sessionKey{}, sid)
			ctx = logging.WithSessionID(ctx, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validSessionID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

func sessionID(r *http.Request) string {
	v, _ := r.Context().Value(sessionKey{}).(string)
	return v
}

func wizardCookieName(flow model.FlowKind) string { return wizardCookiePrefix + string(flow) }

// wizardStateID returns the id of the flow's wizard state, or "".
func wizardStateID(r *http.Request, flow model.FlowKind) string {
	c, err := r.Cookie(wizardCookieName(flow))
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setWizardCookie(w http.ResponseWriter, flow model.FlowKind, stateID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     wizardCookieName(flow),
		Value:    stateID,
		Path:     "/services/" + string(flow),
		MaxAge:   int(s.opts.WizardTTL / time.Second),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearWizardCookie(w http.ResponseWriter, flow model.FlowKind) {
	http.SetCookie(w, &http.Cookie{
		Name:     wizardCookieName(flow),
		Value:    "",
		Path:     "/services/" + string(flow),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
