// File: internal/usecase/callback_uc.go
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
var _ CallbackUseCase = (*callbackUC)(nil)

// CallbackUseCase resolves a gateway return into a page outcome. Every entry
// point (gateway callback, backend redirect, manual retry, popup watcher)
// goes through Resolve.
type CallbackUseCase interface {
	Resolve(ctx context.Context, sessionID string, params model.CallbackParams) (*model.Resolution, error)
	// ResolveRedirect handles /payment/redirect/{segment}/{requestID}: the
	// service type is taken from the url segment.
	ResolveRedirect(ctx context.Context, sessionID, segment, requestID string, params model.CallbackParams) (*model.Resolution, error)
}

const resolveLockTTL = 30 * time.Second

type callbackUC struct {
	pending  repository.PendingPaymentRepository
	backend  adapter.PaymentBackend
	locker   repository.Locker
	outcomes repository.PopupRepository
	log      *zerolog.Logger
	now      func() time.Time
}

func NewCallbackUseCase(
	pending repository.PendingPaymentRepository,
	backend adapter.PaymentBackend,
	locker repository.Locker,
	logger *zerolog.Logger,
) *callbackUC {
	return &callbackUC{pending: pending, backend: backend, locker: locker, log: logger, now: time.Now}
}

// RecordOutcomes makes settled resolutions visible to the popup page. The
// gateway may return to the callback inside the popup window, which clears
// the pending record before the window is closed.
func (c *callbackUC) RecordOutcomes(popups repository.PopupRepository) *callbackUC {
	c.outcomes = popups
	return c
}

func (c *callbackUC) Resolve(ctx context.Context, sessionID string, params model.CallbackParams) (*model.Resolution, error) {
	if sessionID == "" {
		return missing(), nil
	}
	key := "lock:resolve:" + sessionID
	token, err := c.locker.TryLock(ctx, key, resolveLockTTL)
	if err != nil {
		if !errors.Is(err, domain.ErrResolveInProgress) {
			c.log.Warn().Err(err).Msg("resolve lock")
		}
		return &model.Resolution{Status: model.ResolutionPending}, nil
	}
	defer func() {
		if err := c.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			c.log.Warn().Err(err).Msg("resolve unlock")
		}
	}()
	return c.resolve(ctx, sessionID, params)
}

func (c *callbackUC) resolve(ctx context.Context, sessionID string, params model.CallbackParams) (*model.Resolution, error) {
	p, err := c.pending.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return missing(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending payment: %w", err)
	}

	ref := params.Ref()
	if ref == "" {
		ref = p.Reference
	}
	if ref == "" {
		return missing(), nil
	}

	res := &model.Resolution{Service: p.ServiceType, RequestID: p.RequestID, Reference: ref}
	v, err := c.backend.VerifyPayment(ctx, p.ServiceType, p.RequestID, ref)
	if err != nil {
		// record kept; the citizen may try again
		var be *adapter.BackendError
		if errors.As(err, &be) {
			res.Status = model.ResolutionFailed
			res.Message = be.Message
		} else {
			res.Status = model.ResolutionPending
		}
		c.log.Warn().Err(err).Str("service", string(p.ServiceType)).Str("request_id", p.RequestID).Msg("verify payment")
		return res, nil
	}

	res.Message = v.Message
	res.Detail = v.Detail
	switch v.Status {
	case model.VerificationSuccess:
		res.Status = model.ResolutionSuccess
		res.LandingURL = landingURL(p.ServiceType)
		c.clear(ctx, sessionID)
		c.record(ctx, sessionID, res)
	case model.VerificationFailed:
		res.Status = model.ResolutionFailed
		c.clear(ctx, sessionID)
		c.record(ctx, sessionID, res)
	default:
		res.Status = model.ResolutionPending
	}
	c.log.Info().Str("service", string(p.ServiceType)).Str("request_id", p.RequestID).
		Str("status", string(res.Status)).Msg("payment resolved")
	return res, nil
}

func (c *callbackUC) ResolveRedirect(ctx context.Context, sessionID, segment, requestID string, params model.CallbackParams) (*model.Resolution, error) {
	svc, err := model.ServiceFromSegment(segment)
	if err != nil {
		return nil, err
	}
	if sessionID == "" || requestID == "" {
		return missing(), nil
	}

	p, err := c.pending.Get(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p = &model.PendingPayment{Version: model.PendingPaymentVersion, CreatedAt: c.now()}
	case err != nil:
		return nil, fmt.Errorf("load pending payment: %w", err)
	}
	if p.RequestID != requestID {
		// a different run; its stored reference does not apply
		p.Reference = ""
	}
	p.RequestID = requestID
	p.ServiceType = svc
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := c.pending.Save(ctx, sessionID, p); err != nil {
		return nil, fmt.Errorf("save pending payment: %w", err)
	}
	return c.Resolve(ctx, sessionID, params)
}

func (c *callbackUC) clear(ctx context.Context, sessionID string) {
	if err := c.pending.Clear(ctx, sessionID); err != nil {
		c.log.Error().Err(err).Msg("clear pending payment")
	}
}

func (c *callbackUC) record(ctx context.Context, sessionID string, res *model.Resolution) {
	if c.outcomes == nil {
		return
	}
	out := &model.PaymentOutcome{Resolution: res, CompletedAt: c.now()}
	if err := c.outcomes.SaveOutcome(context.WithoutCancel(ctx), sessionID, out); err != nil {
		c.log.Warn().Err(err).Msg("save payment outcome")
	}
}

func landingURL(svc model.ServiceType) string {
	if f, ok := model.LookupFlow(string(svc.Flow())); ok {
		return f.CompletePath()
	}
	return "/"
}

func missing() *model.Resolution {
	return &model.Resolution{Status: model.ResolutionMissing}
}
