package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
	"pals-portal/internal/infra/metrics"
)

var _ adapter.GeographyBackend = (*geographyCacheDecorator)(nil)

// geographyCacheDecorator is a read-through cache over the backend's lga
// service. The lists change rarely; entries simply expire.
type geographyCacheDecorator struct {
	inner adapter.GeographyBackend
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewGeographyCacheDecorator(inner adapter.GeographyBackend, cache RedisClient, ttl time.Duration, logger *zerolog.Logger) adapter.GeographyBackend {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &geographyCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

const statesKey = "geo:states"

func lgasKey(state string) string { return "geo:lgas:" + strings.ToLower(state) }

func (d *geographyCacheDecorator) States(ctx context.Context) ([]model.State, error) {
	var states []model.State
	if d.lookup(ctx, "geo_states", statesKey, &states) {
		return states, nil
	}
	return d.RefreshStates(ctx)
}

func (d *geographyCacheDecorator) LGAs(ctx context.Context, state string) ([]model.LGA, error) {
	var lgas []model.LGA
	if d.lookup(ctx, "geo_lgas", lgasKey(state), &lgas) {
		return lgas, nil
	}
	return d.loadLGAs(ctx, state)
}

// RefreshStates reads the states from the backend and overwrites the entry.
func (d *geographyCacheDecorator) RefreshStates(ctx context.Context) ([]model.State, error) {
	states, err := d.inner.States(ctx)
	if err != nil {
		return nil, err
	}
	if len(states) > 0 {
		d.store(ctx, statesKey, states)
	}
	return states, nil
}

func (d *geographyCacheDecorator) RefreshLGAs(ctx context.Context, state string) error {
	_, err := d.loadLGAs(ctx, state)
	return err
}

func (d *geographyCacheDecorator) loadLGAs(ctx context.Context, state string) ([]model.LGA, error) {
	lgas, err := d.inner.LGAs(ctx, state)
	if err != nil {
		return nil, err
	}
	if len(lgas) > 0 {
		d.store(ctx, lgasKey(state), lgas)
	}
	return lgas, nil
}

// lookup reports a usable hit. Redis errors degrade to a miss.
func (d *geographyCacheDecorator) lookup(ctx context.Context, name, key string, dst any) bool {
	val, err := d.cache.Get(ctx, key)
	if err == nil && json.Unmarshal([]byte(val), dst) == nil {
		metrics.IncCacheRequest(name, "hit")
		return true
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		metrics.IncCacheRequest(name, "error")
		d.log.Warn().Err(err).Str("key", key).Msg("geography cache read")
		return false
	}
	metrics.IncCacheRequest(name, "miss")
	return false
}

func (d *geographyCacheDecorator) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("geography cache write")
	}
}
