package repository

import (
	"context"

	"pals-portal/internal/domain/model"
)

// WizardStateRepository holds in-progress wizard runs. Get returns
// domain.ErrNotFound once a run has expired or was never saved.
type WizardStateRepository interface {
	Save(ctx context.Context, state *model.WizardState) error
	Get(ctx context.Context, id string) (*model.WizardState, error)
	Delete(ctx context.Context, id string) error
}
