package store

import (
	"context"
	"errors"
	"time"

	"github.com/voyagen/xtreamrelay/internal/cache"
	"github.com/voyagen/xtreamrelay/internal/models"
)

const redisKeyPrefix = "xtreamrelay:session:"

// Redis keeps sessions as JSON values with a key TTL, so expiry needs no sweeping.
type Redis struct {
	rds *cache.Redis
	ttl time.Duration
}

// NewRedis returns a Redis-backed store. A zero ttl keeps sessions until deleted.
func NewRedis(rds *cache.Redis, ttl time.Duration) *Redis {
	return &Redis{rds: rds, ttl: ttl}
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (r *Redis) Get(ctx context.Context, id string) (*models.Session, error) {
	s, err := cache.Get[models.Session](ctx, r.rds, redisKey(id))
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Redis) Put(ctx context.Context, s models.Session) error {
	return cache.Set(ctx, r.rds, redisKey(s.ID), s, r.ttl)
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	return cache.Del(ctx, r.rds, redisKey(id))
}

// Sweep is a no-op; Redis expires keys itself.
func (r *Redis) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r *Redis) Close() error {
	return r.rds.Close()
}
