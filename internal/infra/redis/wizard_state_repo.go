package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/repository"
)

var _ repository.WizardStateRepository = (*WizardStateRepo)(nil)

// WizardStateRepo keeps in-progress wizard runs in Redis; a run expires
// after ttl without activity.
type WizardStateRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewWizardStateRepo(client RedisClient, ttl time.Duration) *WizardStateRepo {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &WizardStateRepo{client: client, ttl: ttl}
}

func (s *WizardStateRepo) stateKey(id string) string {
	return "wizard_state:" + id
}

func (s *WizardStateRepo) Save(ctx context.Context, state *model.WizardState) error {
	if state == nil || state.ID == "" {
		return domain.ErrInvalidArgument
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stateKey(state.ID), data, s.ttl)
}

func (s *WizardStateRepo) Get(ctx context.Context, id string) (*model.WizardState, error) {
	data, err := s.client.Get(ctx, s.stateKey(id))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var state model.WizardState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		// unreadable state is treated as expired
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

func (s *WizardStateRepo) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.stateKey(id))
}
