// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"pals-portal/internal/config"
	"pals-portal/internal/infra/adapters/backend"
	"pals-portal/internal/infra/i18n"
	"pals-portal/internal/infra/logging"
	"pals-portal/internal/infra/metrics"
	red "pals-portal/internal/infra/redis"
	"pals-portal/internal/infra/scheduler"
	"pals-portal/internal/infra/security"
	"pals-portal/internal/infra/web"
	"pals-portal/internal/infra/worker"
	"pals-portal/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	states := red.NewWizardStateRepo(redisClient, cfg.Wizard.StateTTL)
	pending := red.NewPendingPaymentRepo(redisClient, cfg.Payment.PendingTTL)
	popups := red.NewPopupRepo(redisClient, cfg.Payment.PopupTimeout+time.Minute)
	limiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Backend ----
	api, err := backend.NewClient(cfg.Backend, cfg.Payment.SuccessPredicates, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("backend client")
	}
	geo := red.NewGeographyCacheDecorator(api, redisClient, cfg.Redis.TTL, logger)

	// ---- Security ----
	cipher, err := security.NewTokenCipher(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("token cipher")
	}
	auth := web.NewAuthManager(cfg.Security.JWTSecret, cipher, cfg.HTTP.SecureCookies, "", cfg.Security.SessionTTL)

	translator, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		logger.Fatal().Err(err).Msg("translations")
	}

	// ---- Background workers ----
	pool := worker.NewPool(cfg.Worker.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	// ---- Use cases ----
	wizardUC := usecase.NewWizardUseCase(states, api, limiter, usecase.OTPPolicy{
		Limit:  cfg.Wizard.OTPSendLimit,
		Window: cfg.Wizard.OTPWindow,
	}, logger)
	callbackUC := usecase.NewCallbackUseCase(pending, api, locker, logger).RecordOutcomes(popups)
	watcher := usecase.NewPopupWatcher(callbackUC, popups, cfg.Payment.MaxPopupWatches, cfg.Payment.PopupInterval, cfg.Payment.PopupTimeout, logger).
		OnExit(metrics.IncPopupWatch)
	watcher.Start(ctx)
	defer watcher.Stop()
	paymentUC := usecase.NewPaymentUseCase(wizardUC, api, pending, popups, watcher, usecase.PaymentConfig{
		CallbackURL: cfg.HTTP.PublicBaseURL + "/payment/callback",
		Modes:       cfg.PaymentModes(),
	}, logger)

	lookupUC := usecase.NewLookupUseCase(geo, api).WithWarmer(pool)
	refresher := scheduler.NewScheduler("lookup-refresh", cfg.Lookup.RefreshInterval, lookupUC, logger)
	refresher.Start(ctx)
	defer refresher.Stop()

	// ---- HTTP ----
	portal, err := web.NewServer(web.Deps{
		Wizard:     wizardUC,
		Payments:   paymentUC,
		Callbacks:  callbackUC,
		Admin:      usecase.NewAdminUseCase(api, logger),
		Lookups:    lookupUC,
		Popups:     popups,
		Auth:       auth,
		Translator: translator,
	}, web.Options{
		Port:          cfg.HTTP.Port,
		SecureCookies: cfg.HTTP.SecureCookies,
		Timeout:       cfg.HTTP.Timeout,
		WizardTTL:     cfg.Wizard.StateTTL,
		SuccessDelay:  cfg.Payment.SuccessDelay,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("web server")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(portal.Start)
	g.Go(func() error {
		logger.Info().Int("port", cfg.Metrics.Port).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		return errors.Join(portal.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}
