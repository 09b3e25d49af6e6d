// Package cache memoizes computed results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"serprank/config"
)

// Cache wraps a Redis client. A nil *Cache, or one built without an address,
// passes every call straight through.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logrus.FieldLogger
}

// New connects to the configured Redis. It returns a pass-through cache when
// no address is configured.
func New(cfg config.RedisConfig, logger logrus.FieldLogger) *Cache {
	if cfg.Addr == "" {
		return &Cache{ttl: cfg.TTL, logger: logger}
	}
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.TTL, logger)
}

// NewWithClient uses an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Enabled reports whether results are actually stored.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// Key joins parts into a namespaced cache key.
func Key(parts ...string) string {
	return "serprank:" + strings.Join(parts, ":")
}

// Memoize returns the cached value for key, or calls fn and caches its
// result. Cache failures are logged and never fail the call.
func Memoize[T any](ctx context.Context, c *Cache, key string, fn func() (T, error)) (T, error) {
	var result T
	if !c.Enabled() {
		return fn()
	}

	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(cached, &result); jsonErr == nil {
			return result, nil
		}
	case err != redis.Nil:
		c.logger.WithError(err).WithField("key", key).Warn("cache read failed")
	}

	result, err = fn()
	if err != nil {
		return result, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return result, nil
}
