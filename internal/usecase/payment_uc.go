// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
	"pals-portal/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// Handoff tells the review page how to send the citizen to the gateway.
type Handoff struct {
	Service          model.ServiceType
	Mode             model.PaymentMode
	AuthorizationURL string
	Reference        string
	Amount           int64
}

type PaymentUseCase interface {
	// Initiate starts a gateway payment for the reviewed wizard run and
	// records the pending payment for the session. Nothing is recorded when
	// the backend does not return a usable authorization url.
	Initiate(ctx context.Context, sessionID string, flow model.Flow, stateID string) (*Handoff, error)
}

// PopupScheduler starts watching a popup payment window in the background.
type PopupScheduler interface {
	Schedule(ctx context.Context, sessionID string) error
}

type PaymentConfig struct {
	CallbackURL string
	Modes       map[model.ServiceType]model.PaymentMode
}

type paymentUC struct {
	wizard  WizardUseCase
	backend adapter.PaymentBackend
	pending repository.PendingPaymentRepository
	popups  repository.PopupRepository
	watcher PopupScheduler
	cfg     PaymentConfig
	log     *zerolog.Logger
	now     func() time.Time
}

func NewPaymentUseCase(
	wizard WizardUseCase,
	backend adapter.PaymentBackend,
	pending repository.PendingPaymentRepository,
	popups repository.PopupRepository,
	watcher PopupScheduler,
	cfg PaymentConfig,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		wizard:  wizard,
		backend: backend,
		pending: pending,
		popups:  popups,
		watcher: watcher,
		cfg:     cfg,
		log:     logger,
		now:     time.Now,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, sessionID string, flow model.Flow, stateID string) (*Handoff, error) {
	if sessionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !flow.Payable() {
		return nil, domain.ErrPaymentNotPayable
	}
	state, err := u.wizard.Load(ctx, flow, stateID, model.StepReview)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, domain.ErrMissingState
	}
	if state.Amount <= 0 {
		return nil, domain.ErrAmountNotAvailable
	}

	svc := flow.Service
	sess, err := u.backend.InitiatePayment(ctx, svc, state.RequestID, state.Amount, state.PayerEmail(), u.cfg.CallbackURL)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.AuthorizationURL == "" || sess.Reference == "" {
		return nil, domain.ErrPaymentInitiation
	}

	p, err := model.NewPendingPayment(svc, state.RequestID, sess.Reference, state.PayerEmail(), state.Amount, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.pending.Save(ctx, sessionID, p); err != nil {
		return nil, fmt.Errorf("save pending payment: %w", err)
	}

	h := &Handoff{
		Service:          svc,
		Mode:             u.mode(svc),
		AuthorizationURL: sess.AuthorizationURL,
		Reference:        sess.Reference,
		Amount:           state.Amount,
	}
	if h.Mode == model.PaymentModePopup {
		u.startPopup(ctx, sessionID)
	}
	u.log.Info().Str("service", string(svc)).Str("request_id", state.RequestID).
		Str("mode", string(h.Mode)).Int64("amount", h.Amount).Msg("payment handoff")
	return h, nil
}

func (u *paymentUC) mode(svc model.ServiceType) model.PaymentMode {
	if m, ok := u.cfg.Modes[svc]; ok {
		return m
	}
	return model.PaymentModeInline
}

// startPopup resets the window signals left by an earlier attempt and hands
// the session to the watcher. With every watch slot taken only the automatic
// check is lost; the popup page still offers a manual one.
func (u *paymentUC) startPopup(ctx context.Context, sessionID string) {
	if err := errors.Join(u.popups.ClearClosed(ctx, sessionID), u.popups.ClearOutcome(ctx, sessionID)); err != nil {
		u.log.Warn().Err(err).Msg("reset popup signals")
	}
	if u.watcher == nil {
		return
	}
	if err := u.watcher.Schedule(ctx, sessionID); err != nil {
		u.log.Warn().Err(err).Msg("schedule popup watcher")
	}
}
