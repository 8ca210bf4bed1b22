// Package cache keeps vehicle pool membership in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

// kv is the subset of *redis.Client the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// PoolCache is a read-through cache in front of a pool repository. Redis errors are
// logged and the call falls through to the repository.
type PoolCache struct {
	next   repository.PoolRepository
	client kv
	ttl    time.Duration
}

// NewPoolCache wraps next. A nil client disables caching.
func NewPoolCache(next repository.PoolRepository, client *redis.Client, ttl time.Duration) *PoolCache {
	c := &PoolCache{next: next, ttl: ttl}
	if client != nil {
		c.client = client
	}
	return c
}

func poolKey(id int32) string {
	return fmt.Sprintf("motorent:pool:%d", id)
}

func (c *PoolCache) GetPoolByID(ctx context.Context, id int32) (*domain.VehiclePool, error) {
	if c.client == nil {
		return c.next.GetPoolByID(ctx, id)
	}

	key := poolKey(id)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var pool domain.VehiclePool
		if jerr := json.Unmarshal(raw, &pool); jerr == nil {
			return &pool, nil
		}
		logger.Warn("discarding unreadable cached pool", "pool_id", id)
	case errors.Is(err, redis.Nil):
	default:
		logger.Warn("pool cache read failed", "pool_id", id, "error", err)
	}

	pool, err := c.next.GetPoolByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if body, jerr := json.Marshal(pool); jerr == nil {
		if serr := c.client.Set(ctx, key, body, c.ttl).Err(); serr != nil {
			logger.Warn("pool cache write failed", "pool_id", id, "error", serr)
		}
	}
	return pool, nil
}

// NewRedisClient connects and pings with a short timeout. It returns nil when addr is
// empty or the server is unreachable, which leaves caching disabled.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, pool cache disabled", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
