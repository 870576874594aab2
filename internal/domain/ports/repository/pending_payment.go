package repository

import (
	"context"

	"pals-portal/internal/domain/model"
)

// PendingPaymentRepository is the only reader and writer of the pending
// payment record. There is one record per browser session; records of an
// unknown version read as domain.ErrNotFound.
type PendingPaymentRepository interface {
	Save(ctx context.Context, sessionID string, p *model.PendingPayment) error
	Get(ctx context.Context, sessionID string) (*model.PendingPayment, error)
	Clear(ctx context.Context, sessionID string) error
}
