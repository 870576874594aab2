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

var _ repository.PopupRepository = (*PopupRepo)(nil)

type PopupRepo struct {
	client RedisClient
	ttl    time.Duration
}

// NewPopupRepo keeps popup signals for ttl; it should outlive the watcher
// timeout so the popup page can still read a timed out outcome.
func NewPopupRepo(client RedisClient, ttl time.Duration) *PopupRepo {
	return &PopupRepo{client: client, ttl: ttl}
}

func closedKey(sessionID string) string  { return "popup_closed:" + sessionID }
func outcomeKey(sessionID string) string { return "popup_outcome:" + sessionID }

func (p *PopupRepo) MarkClosed(ctx context.Context, sessionID string) error {
	return p.client.Set(ctx, closedKey(sessionID), "1", p.ttl)
}

func (p *PopupRepo) IsClosed(ctx context.Context, sessionID string) (bool, error) {
	_, err := p.client.Get(ctx, closedKey(sessionID))
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *PopupRepo) ClearClosed(ctx context.Context, sessionID string) error {
	return p.client.Del(ctx, closedKey(sessionID))
}

func (p *PopupRepo) SaveOutcome(ctx context.Context, sessionID string, o *model.PaymentOutcome) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, outcomeKey(sessionID), data, p.ttl)
}

func (p *PopupRepo) GetOutcome(ctx context.Context, sessionID string) (*model.PaymentOutcome, error) {
	data, err := p.client.Get(ctx, outcomeKey(sessionID))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var o model.PaymentOutcome
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (p *PopupRepo) ClearOutcome(ctx context.Context, sessionID string) error {
	return p.client.Del(ctx, outcomeKey(sessionID))
}
