package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("too many attempts, please wait and try again")
	ErrUnknownService    = errors.New("unknown service type")
	ErrUnknownFlow       = errors.New("unknown service flow")
	ErrMissingState      = errors.New("wizard state missing for this step")
	ErrIllegalTransition = errors.New("step does not belong to this flow")

	// Payment errors
	ErrPaymentInitiation  = errors.New("payment initiation returned no authorization url or reference")
	ErrNoPendingPayment   = errors.New("no pending payment")
	ErrResolveInProgress  = errors.New("payment verification already in progress")
	ErrPaymentNotPayable  = errors.New("flow does not take payments")
	ErrAmountNotAvailable = errors.New("payment amount not available")
	ErrWatchersBusy       = errors.New("too many popup payments being watched")
)
