package model

import "time"

type VerificationStatus string

const (
	VerificationPending VerificationStatus = "pending"
	VerificationSuccess VerificationStatus = "success"
	VerificationFailed  VerificationStatus = "failed"
)

// VerificationResult is the backend's answer to a verify-payment call.
type VerificationResult struct {
	Status  VerificationStatus `json:"status"`
	Message string             `json:"message,omitempty"`
	Detail  map[string]string  `json:"detail,omitempty"` // e.g. expiryDate, approvalDate
}

// CallbackParams are the query parameters the gateway appends on return.
type CallbackParams struct {
	Reference string
	Trxref    string
}

// Ref returns the url-supplied reference, preferring "reference".
func (p CallbackParams) Ref() string {
	if p.Reference != "" {
		return p.Reference
	}
	return p.Trxref
}

type ResolutionStatus string

const (
	ResolutionSuccess ResolutionStatus = "success"
	ResolutionFailed  ResolutionStatus = "failed"
	ResolutionPending ResolutionStatus = "pending"
	ResolutionMissing ResolutionStatus = "missing" // nothing to resolve
)

// Resolution is what the callback page shows.
type Resolution struct {
	Status     ResolutionStatus  `json:"status"`
	Service    ServiceType       `json:"service,omitempty"`
	RequestID  string            `json:"requestId,omitempty"`
	Reference  string            `json:"reference,omitempty"`
	Message    string            `json:"message,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
	LandingURL string            `json:"landingUrl,omitempty"`
}

// Retryable reports whether the same check may be run again.
func (r *Resolution) Retryable() bool {
	return r.Status == ResolutionFailed || r.Status == ResolutionPending
}

// PaymentOutcome is left by the popup watcher for the popup page to pick up.
type PaymentOutcome struct {
	Resolution  *Resolution `json:"resolution,omitempty"`
	TimedOut    bool        `json:"timedOut"`
	CompletedAt time.Time   `json:"completedAt"`
}
