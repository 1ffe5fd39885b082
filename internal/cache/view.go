// Package cache keeps JSON read models in Redis in front of the primary store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// View is a JSON-backed Redis cache bound to a value type T. A zero TTL keeps
// keys until they are deleted.
type View[T any] struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewView[T any](client *redis.Client, ttl time.Duration, log *zap.Logger) *View[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &View[T]{client: client, ttl: ttl, log: log}
}

// Get returns the cached value for key. Misses, Redis failures and undecodable
// payloads all report false.
func (c *View[T]) Get(ctx context.Context, key string) (T, bool) {
	var v T
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		c.log.Warn("cache payload undecodable", zap.String("key", key), zap.Error(err))
		return v, false
	}
	return v, true
}

// Set stores value under key. Write failures are logged, not returned.
func (c *View[T]) Set(ctx context.Context, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *View[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
