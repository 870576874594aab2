package repository

import (
	"context"

	"pals-portal/internal/domain/model"
)

// PopupRepository carries the popup payment window's signals between the
// browser-facing handlers and the background watcher.
type PopupRepository interface {
	MarkClosed(ctx context.Context, sessionID string) error
	IsClosed(ctx context.Context, sessionID string) (bool, error)
	ClearClosed(ctx context.Context, sessionID string) error

	SaveOutcome(ctx context.Context, sessionID string, o *model.PaymentOutcome) error
	// GetOutcome returns domain.ErrNotFound while the watcher is still running.
	GetOutcome(ctx context.Context, sessionID string) (*model.PaymentOutcome, error)
	ClearOutcome(ctx context.Context, sessionID string) error
}
