package model

import (
	"time"

	"pals-portal/internal/domain"
)

// StepEvent is a completed step, already accepted by the backend. The set of
// variants is closed; Reduce is the only place that applies them.
type StepEvent interface {
	Step() StepID
	isStepEvent()
}

type VINVerified struct {
	VIN          string
	Verification VINVerification
}

type OwnerSubmitted struct{ Owner OwnerInfo }

type VehicleDetailsSubmitted struct {
	Details   VehicleDetails
	Valuation *Valuation // set by the valuation flow
}

type DocumentsUploaded struct{ Documents []UploadedDocument }

type AdditionalInfoSubmitted struct{ Info AdditionalInfo }

type OTPConfirmed struct{}

type NextOwnerSubmitted struct{ Owner OwnerInfo }

// QuoteReceived records the server-issued amount on the review step.
type QuoteReceived struct{ Amount int64 }

func (VINVerified) Step() StepID             { return StepEnterVIN }
func (OwnerSubmitted) Step() StepID          { return StepOwnerInformation }
func (VehicleDetailsSubmitted) Step() StepID { return StepVehicleDetails }
func (DocumentsUploaded) Step() StepID       { return StepUploadDocuments }
func (AdditionalInfoSubmitted) Step() StepID { return StepAdditionalInformation }
func (OTPConfirmed) Step() StepID            { return StepVerifyOTP }
func (NextOwnerSubmitted) Step() StepID      { return StepNextOwnerInformation }
func (QuoteReceived) Step() StepID           { return StepReview }

func (VINVerified) isStepEvent()             {}
func (OwnerSubmitted) isStepEvent()          {}
func (VehicleDetailsSubmitted) isStepEvent() {}
func (DocumentsUploaded) isStepEvent()       {}
func (AdditionalInfoSubmitted) isStepEvent() {}
func (OTPConfirmed) isStepEvent()            {}
func (NextOwnerSubmitted) isStepEvent()      {}
func (QuoteReceived) isStepEvent()           {}

// Reduce applies ev to state and returns the new state. The input is not
// modified. Completing the furthest reached step unlocks the next one;
// resubmitting an earlier step merges its fields and keeps progress. A VIN
// answered with a different backend request starts the run over, since the
// fields collected so far belong to the old request.
func Reduce(flow Flow, state *WizardState, ev StepEvent, now time.Time) (*WizardState, error) {
	if ev == nil {
		return nil, domain.ErrInvalidArgument
	}
	idx := flow.IndexOf(ev.Step())
	if idx < 0 {
		return nil, domain.ErrIllegalTransition
	}
	if err := Guard(flow, ev.Step(), state); err != nil {
		return nil, err
	}

	next := state.clone()
	switch e := ev.(type) {
	case VINVerified:
		if e.Verification.RequestID == "" {
			return nil, domain.ErrInvalidArgument
		}
		if state.RequestID != "" && state.RequestID != e.Verification.RequestID {
			next = &WizardState{
				ID:        state.ID,
				Flow:      state.Flow,
				Step:      flow.Entry(),
				CreatedAt: state.CreatedAt,
			}
		}
		next.VIN = e.VIN
		next.RequestID = e.Verification.RequestID
		v := e.Verification.Vehicle
		next.Vehicle = &v
		if e.Verification.OwnerPhone != "" {
			next.OwnerPhone = e.Verification.OwnerPhone
		}
	case OwnerSubmitted:
		o := e.Owner
		next.Owner = &o
	case VehicleDetailsSubmitted:
		if flow.Kind == FlowValuation && e.Valuation == nil {
			return nil, domain.ErrInvalidArgument
		}
		d := e.Details
		next.VehicleDetails = &d
		if e.Valuation != nil {
			v := *e.Valuation
			next.Valuation = &v
		}
	case DocumentsUploaded:
		if len(e.Documents) == 0 {
			return nil, domain.ErrInvalidArgument
		}
		next.Documents = mergeDocuments(next.Documents, e.Documents)
	case AdditionalInfoSubmitted:
		a := e.Info
		next.Additional = &a
	case OTPConfirmed:
		next.OTPVerified = true
	case NextOwnerSubmitted:
		o := e.Owner
		next.NextOwner = &o
	case QuoteReceived:
		if e.Amount <= 0 {
			return nil, domain.ErrAmountNotAvailable
		}
		next.Amount = e.Amount
	default:
		return nil, domain.ErrIllegalTransition
	}

	if idx == flow.IndexOf(next.Step) {
		if s, ok := flow.Next(ev.Step()); ok {
			next.Step = s
		}
	}
	next.UpdatedAt = now
	return next, nil
}

// Guard reports whether step may be shown for state: the state must belong
// to the flow, have reached the step, and carry every field the earlier
// steps produce.
func Guard(flow Flow, step StepID, state *WizardState) error {
	idx := flow.IndexOf(step)
	if idx < 0 {
		return domain.ErrIllegalTransition
	}
	if state == nil || state.Flow != flow.Kind {
		return domain.ErrMissingState
	}
	reached := flow.IndexOf(state.Step)
	if reached < 0 || idx > reached {
		return domain.ErrMissingState
	}
	for _, prior := range flow.Steps[:idx] {
		if !produced(flow, prior.ID, state) {
			return domain.ErrMissingState
		}
	}
	return nil
}

// produced reports whether the fields a completed step contributes are present.
func produced(flow Flow, step StepID, s *WizardState) bool {
	switch step {
	case StepEnterVIN:
		return s.RequestID != "" && s.VIN != ""
	case StepOwnerInformation:
		return s.Owner != nil
	case StepVehicleDetails:
		if flow.Kind == FlowValuation {
			return s.VehicleDetails != nil && s.Valuation != nil
		}
		return s.VehicleDetails != nil
	case StepUploadDocuments:
		for _, k := range flow.Documents {
			if _, ok := s.Document(k); !ok {
				return false
			}
		}
		return len(s.Documents) > 0
	case StepAdditionalInformation:
		return s.Additional != nil
	case StepVerifyOTP:
		return s.OTPVerified
	case StepNextOwnerInformation:
		return s.NextOwner != nil
	}
	return true
}

// mergeDocuments replaces documents of the same kind and keeps the rest.
func mergeDocuments(have, add []UploadedDocument) []UploadedDocument {
	out := make([]UploadedDocument, 0, len(have)+len(add))
	replaced := make(map[DocumentKind]bool, len(add))
	for _, d := range add {
		replaced[d.Kind] = true
	}
	for _, d := range have {
		if !replaced[d.Kind] {
			out = append(out, d)
		}
	}
	return append(out, add...)
}
