package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

type AdminUseCase interface {
	Login(ctx context.Context, in model.LoginInput) (*model.AdminSession, error)
	Dashboard(ctx context.Context, token string) (*model.DashboardStats, error)
}

type adminUC struct {
	backend adapter.AdminBackend
	log     *zerolog.Logger
}

func NewAdminUseCase(backend adapter.AdminBackend, logger *zerolog.Logger) *adminUC {
	return &adminUC{backend: backend, log: logger}
}

func (a *adminUC) Login(ctx context.Context, in model.LoginInput) (*model.AdminSession, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sess, err := a.backend.Login(ctx, in.Email, in.Password)
	if err != nil {
		return nil, asUnauthorized(err)
	}
	if sess == nil || sess.Token == "" {
		return nil, domain.ErrUnauthorized
	}
	return sess, nil
}

func (a *adminUC) Dashboard(ctx context.Context, token string) (*model.DashboardStats, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	stats, err := a.backend.Dashboard(ctx, token)
	if err != nil {
		return nil, asUnauthorized(err)
	}
	return stats, nil
}

// asUnauthorized keeps the backend message but lets callers match on
// domain.ErrUnauthorized for 401/403 answers.
func asUnauthorized(err error) error {
	var be *adapter.BackendError
	if errors.As(err, &be) && (be.Status == http.StatusUnauthorized || be.Status == http.StatusForbidden) {
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	return err
}
