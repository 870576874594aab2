package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"pals-portal/internal/domain/ports/repository"
	"pals-portal/internal/infra/i18n"
	"pals-portal/internal/usecase"
)

type Options struct {
	Port          int
	SecureCookies bool
	Timeout       time.Duration // per request
	WizardTTL     time.Duration // lifetime of the wizard cookie
	SuccessDelay  time.Duration // auto-navigation after a verified payment
}

type Deps struct {
	Wizard     usecase.WizardUseCase
	Payments   usecase.PaymentUseCase
	Callbacks  usecase.CallbackUseCase
	Admin      usecase.AdminUseCase
	Lookups    usecase.LookupUseCase
	Popups     repository.PopupRepository
	Auth       *AuthManager
	Translator *i18n.Translator
}

// Server renders the citizen portal and the admin area.
type Server struct {
	Deps
	opts   Options
	pages  map[string]*template.Template
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(deps Deps, opts Options, logger *zerolog.Logger) (*Server, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.WizardTTL <= 0 {
		opts.WizardTTL = 15 * time.Minute
	}
	if opts.SuccessDelay <= 0 {
		opts.SuccessDelay = 5 * time.Second
	}
	s := &Server{Deps: deps, opts: opts, log: logger}
	pages, err := parsePages(s.funcs())
	if err != nil {
		return nil, err
	}
	s.pages = pages
	return s, nil
}

// Routes builds the portal router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.opts.Timeout),
		Session(s.opts.SecureCookies),
	)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/", s.handleCatalog)
	r.Get("/services", s.handleCatalog)
	r.Route("/services/{flow}", func(r chi.Router) {
		r.Get("/", s.handleStartFlow)
		r.Get("/complete", s.handleComplete)
		r.Get("/{step}", s.handleStepPage)
		r.Post("/{step}", s.handleStepSubmit)
		r.Post("/{step}/resend", s.handleResendOTP)
	})

	r.Route("/payment", func(r chi.Router) {
		r.Get("/callback", s.handleCallback)
		r.Post("/callback/retry", s.handleCallbackRetry)
		r.Get("/redirect/{segment}/{requestID}", s.handleBackendRedirect)
		r.Post("/popup/closed", s.handlePopupClosed)
		r.Get("/popup/outcome", s.handlePopupOutcome)
		r.Get("/popup/result", s.handlePopupResult)
	})

	r.Get("/api/lgas", s.handleLGAs)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", s.handleAdminLoginPage)
		r.Post("/login", s.handleAdminLogin)
		r.Post("/logout", s.handleAdminLogout)
		r.With(s.Auth.RequireAdmin).Get("/dashboard", s.handleAdminDashboard)
	})

	r.NotFound(s.handleNotFound)
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.log.Info().Int("port", s.opts.Port).Msg("portal listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
