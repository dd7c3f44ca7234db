package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowStore tracks counters over fixed time windows for rate limiting.
type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type redisWindowStore struct {
	client *redis.Client
}

// NewRedisWindowStore builds a WindowStore over redis.
func NewRedisWindowStore(client *redis.Client) WindowStore {
	return &redisWindowStore{client: client}
}

func (s *redisWindowStore) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}
