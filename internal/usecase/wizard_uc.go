// File: internal/usecase/wizard_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
	"pals-portal/internal/domain/ports/repository"
)

// Compile-time check
var _ WizardUseCase = (*wizardUC)(nil)

type WizardUseCase interface {
	// Load returns the state for a page of the flow, or domain.ErrMissingState
	// when the page's precursor steps were never completed.
	Load(ctx context.Context, flow model.Flow, stateID string, step model.StepID) (*model.WizardState, error)
	// Submit validates in, performs the step's backend mutation and advances
	// the state. Validation failures return model.ValidationErrors and make no
	// backend call.
	Submit(ctx context.Context, flow model.Flow, stateID string, in model.StepInput) (*model.WizardState, error)
	// PrepareReview fetches the amount due and stores it on the state.
	PrepareReview(ctx context.Context, flow model.Flow, stateID string) (*model.WizardState, error)
	// RequestOTP asks the backend to (re)send the transfer OTP.
	RequestOTP(ctx context.Context, flow model.Flow, stateID string) error
	Discard(ctx context.Context, stateID string) error
}

type OTPPolicy struct {
	Limit  int
	Window time.Duration
}

type wizardUC struct {
	states  repository.WizardStateRepository
	backend adapter.ServiceBackend
	limiter repository.RateLimiter
	otp     OTPPolicy
	log     *zerolog.Logger
	now     func() time.Time
}

func NewWizardUseCase(
	states repository.WizardStateRepository,
	backend adapter.ServiceBackend,
	limiter repository.RateLimiter,
	otp OTPPolicy,
	logger *zerolog.Logger,
) *wizardUC {
	if otp.Limit <= 0 {
		otp.Limit = 3
	}
	if otp.Window <= 0 {
		otp.Window = 10 * time.Minute
	}
	return &wizardUC{states: states, backend: backend, limiter: limiter, otp: otp, log: logger, now: time.Now}
}

func (w *wizardUC) Load(ctx context.Context, flow model.Flow, stateID string, step model.StepID) (*model.WizardState, error) {
	state, err := w.find(ctx, stateID)
	if err != nil {
		return nil, err
	}
	if step == flow.Entry() && (state == nil || state.Flow != flow.Kind) {
		return nil, nil
	}
	if err := model.Guard(flow, step, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (w *wizardUC) Submit(ctx context.Context, flow model.Flow, stateID string, in model.StepInput) (*model.WizardState, error) {
	if in == nil {
		return nil, domain.ErrInvalidArgument
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !flow.Has(in.Step()) {
		return nil, domain.ErrIllegalTransition
	}

	state, err := w.find(ctx, stateID)
	if err != nil {
		return nil, err
	}
	if state == nil || state.Flow != flow.Kind {
		if in.Step() != flow.Entry() {
			return nil, domain.ErrMissingState
		}
		state = model.NewWizardState(ulid.Make().String(), flow, w.now())
	}
	if err := model.Guard(flow, in.Step(), state); err != nil {
		return nil, err
	}

	ev, err := w.perform(ctx, flow, state, in)
	if err != nil {
		return nil, err
	}
	next, err := model.Reduce(flow, state, ev, w.now())
	if err != nil {
		return nil, err
	}
	if err := w.states.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save wizard state: %w", err)
	}
	w.log.Debug().Str("flow", string(flow.Kind)).Str("step", string(in.Step())).
		Str("state_id", next.ID).Str("next", string(next.Step)).Msg("wizard step completed")
	return next, nil
}

// perform runs the backend mutation for one step and turns its answer into
// the event the reducer applies.
func (w *wizardUC) perform(ctx context.Context, flow model.Flow, s *model.WizardState, in model.StepInput) (model.StepEvent, error) {
	switch v := in.(type) {
	case model.VINInput:
		vin := v.Normalized()
		res, err := w.backend.VerifyVIN(ctx, flow, vin)
		if err != nil {
			return nil, err
		}
		return model.VINVerified{VIN: vin, Verification: *res}, nil

	case model.OwnerInput:
		if v.Next {
			if err := w.backend.SubmitNextOwner(ctx, flow, s.RequestID, v.Owner); err != nil {
				return nil, err
			}
			return model.NextOwnerSubmitted{Owner: v.Owner}, nil
		}
		if err := w.backend.SubmitOwner(ctx, flow, s.RequestID, v.Owner); err != nil {
			return nil, err
		}
		return model.OwnerSubmitted{Owner: v.Owner}, nil

	case model.VehicleDetailsInput:
		if flow.Kind == model.FlowValuation {
			return nil, domain.ErrIllegalTransition
		}
		if err := w.backend.SubmitVehicleDetails(ctx, flow, s.RequestID, v.Details); err != nil {
			return nil, err
		}
		return model.VehicleDetailsSubmitted{Details: v.Details}, nil

	case model.ValuationInput:
		if flow.Kind != model.FlowValuation {
			return nil, domain.ErrIllegalTransition
		}
		val, err := w.backend.EstimateValuation(ctx, s.VIN, v.Details)
		if err != nil {
			return nil, err
		}
		return model.VehicleDetailsSubmitted{Details: v.Details, Valuation: val}, nil

	case model.DocumentsInput:
		docs, err := w.upload(ctx, flow, s.RequestID, v.Files)
		if err != nil {
			return nil, err
		}
		return model.DocumentsUploaded{Documents: docs}, nil

	case model.AdditionalInfoInput:
		if err := w.backend.SubmitAdditionalInfo(ctx, flow, s.RequestID, v.Info); err != nil {
			return nil, err
		}
		return model.AdditionalInfoSubmitted{Info: v.Info}, nil

	case model.OTPInput:
		if err := w.backend.VerifyOTP(ctx, flow, s.RequestID, v.OTP); err != nil {
			return nil, err
		}
		return model.OTPConfirmed{}, nil
	}
	return nil, domain.ErrIllegalTransition
}

// upload sends the files concurrently; the first failure cancels the rest.
func (w *wizardUC) upload(ctx context.Context, flow model.Flow, requestID string, files []model.DocumentUpload) ([]model.UploadedDocument, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	var mu sync.Mutex
	out := make([]model.UploadedDocument, len(files))
	for i, f := range files {
		i, f := i, f
		if f.ContentType == "" {
			f.ContentType = model.DocumentContentType(f.Data)
		}
		g.Go(func() error {
			doc, err := w.backend.UploadDocument(ctx, flow, requestID, f)
			if err != nil {
				return err
			}
			if doc.Kind == "" {
				doc.Kind = f.Kind
			}
			mu.Lock()
			out[i] = *doc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *wizardUC) PrepareReview(ctx context.Context, flow model.Flow, stateID string) (*model.WizardState, error) {
	state, err := w.Load(ctx, flow, stateID, model.StepReview)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, domain.ErrMissingState
	}
	if !flow.Payable() {
		return state, nil
	}
	amount, err := w.backend.Quote(ctx, flow, state.RequestID)
	if err != nil {
		return nil, err
	}
	next, err := model.Reduce(flow, state, model.QuoteReceived{Amount: amount}, w.now())
	if err != nil {
		return nil, err
	}
	if err := w.states.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save wizard state: %w", err)
	}
	return next, nil
}

func (w *wizardUC) RequestOTP(ctx context.Context, flow model.Flow, stateID string) error {
	state, err := w.Load(ctx, flow, stateID, model.StepVerifyOTP)
	if err != nil {
		return err
	}
	if state == nil {
		return domain.ErrMissingState
	}
	ok, err := w.limiter.Allow(ctx, otpKey(state.RequestID), w.otp.Limit, w.otp.Window)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrRateLimited
	}
	return w.backend.SendOTP(ctx, flow, state.RequestID)
}

func (w *wizardUC) Discard(ctx context.Context, stateID string) error {
	if stateID == "" {
		return nil
	}
	return w.states.Delete(ctx, stateID)
}

// find returns nil without error when the state has expired or never existed.
func (w *wizardUC) find(ctx context.Context, stateID string) (*model.WizardState, error) {
	if stateID == "" {
		return nil, nil
	}
	s, err := w.states.Get(ctx, stateID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wizard state: %w", err)
	}
	return s, nil
}

func otpKey(requestID string) string { return "rate_limit:otp:" + requestID }
