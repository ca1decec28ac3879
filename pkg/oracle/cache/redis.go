package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aetherpay/rateoracle/pkg/logging"
)

// RedisCache is the Redis cache backend. Entries are wrapped in an envelope
// carrying their insert time so the fresh/stale split is computed client-side
// against the same TTL as the memory backend; Redis expiry enforces only the
// retention horizon.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	retention time.Duration
	logger    *logging.Logger
}

type redisEnvelope struct {
	InsertedAt time.Time       `json:"inserted_at"`
	Value      json.RawMessage `json:"value"`
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(addr, password string, ttl, retention time.Duration, logger *logging.Logger) *RedisCache {
	if retention < ttl {
		retention = ttl
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl:       ttl,
		retention: retention,
		logger:    logger,
	}
}

// Get implements Cache. Backend errors degrade to a miss; the cache is an
// accelerator and a fallback, never a hard dependency.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Redis get failed", "key", key, "error", err.Error())
		}
		return nil, false, false
	}

	var env redisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("Dropping unreadable cache entry", "key", key, "error", err.Error())
		return nil, false, false
	}

	return env.Value, true, time.Since(env.InsertedAt) >= c.ttl
}

// Put implements Cache.
func (c *RedisCache) Put(ctx context.Context, key string, value []byte) {
	env := redisEnvelope{InsertedAt: time.Now(), Value: value}
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.Warn("Failed to marshal cache entry", "key", key, "error", err.Error())
		return
	}

	if err := c.client.Set(ctx, key, data, c.retention).Err(); err != nil {
		c.logger.Warn("Redis put failed", "key", key, "error", err.Error())
	}
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
