package model

import (
	"time"

	"pals-portal/internal/domain"
)

// PendingPaymentVersion is bumped whenever the stored shape changes; records
// with another version are treated as absent.
const PendingPaymentVersion = 1

// PendingPayment bridges the full-page trip to the payment gateway and back.
// There is at most one per browser session.
type PendingPayment struct {
	Version     int         `json:"version"`
	RequestID   string      `json:"requestId"`
	Reference   string      `json:"reference"`
	ServiceType ServiceType `json:"serviceType"`
	UserEmail   string      `json:"userEmail"`
	Amount      int64       `json:"amount,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func NewPendingPayment(svc ServiceType, requestID, reference, email string, amount int64, now time.Time) (*PendingPayment, error) {
	p := &PendingPayment{
		Version:     PendingPaymentVersion,
		RequestID:   requestID,
		Reference:   reference,
		ServiceType: svc,
		UserEmail:   email,
		Amount:      amount,
		CreatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the fields the resolver depends on. The reference may be
// empty for records written by a backend redirect; the url supplies it then.
func (p *PendingPayment) Validate() error {
	if p == nil || p.Version != PendingPaymentVersion {
		return domain.ErrInvalidArgument
	}
	if p.RequestID == "" || !p.ServiceType.Valid() {
		return domain.ErrInvalidArgument
	}
	return nil
}
