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

// Ensure the adapter implements the port interface.
var _ repository.PendingPaymentRepository = (*PendingPaymentRepo)(nil)

// PendingPaymentRepo stores the single pending payment record of a session
// under pending_payment:<session>.
type PendingPaymentRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewPendingPaymentRepo(client RedisClient, ttl time.Duration) *PendingPaymentRepo {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &PendingPaymentRepo{client: client, ttl: ttl}
}

func pendingKey(sessionID string) string {
	return "pending_payment:" + sessionID
}

func (r *PendingPaymentRepo) Save(ctx context.Context, sessionID string, p *model.PendingPayment) error {
	if sessionID == "" {
		return domain.ErrInvalidArgument
	}
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, pendingKey(sessionID), data, r.ttl)
}

func (r *PendingPaymentRepo) Get(ctx context.Context, sessionID string) (*model.PendingPayment, error) {
	if sessionID == "" {
		return nil, domain.ErrNotFound
	}
	data, err := r.client.Get(ctx, pendingKey(sessionID))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var p model.PendingPayment
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, domain.ErrNotFound
	}
	if p.Version != model.PendingPaymentVersion {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *PendingPaymentRepo) Clear(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, pendingKey(sessionID))
}
