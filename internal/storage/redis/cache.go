// Package redis implements storage.Cache on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"token-intel/internal/observability"
	"token-intel/internal/storage"
)

// DefaultPrefix namespaces every key written by Cache.
const DefaultPrefix = "token-intel:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Cache is a JSON cache over a Redis client.
type Cache struct {
	client redis.Cmdable
	prefix string
}

// NewCache creates a Cache. An empty prefix uses DefaultPrefix.
func NewCache(client redis.Cmdable, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

// GetJSON implements storage.Cache.
func (c *Cache) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	started := time.Now()
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.RecordDBQuery("redis", "get", time.Since(started).Seconds(), nil)
		return false, nil
	}
	observability.RecordDBQuery("redis", "get", time.Since(started).Seconds(), err)
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON implements storage.Cache.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	started := time.Now()
	err = c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
	observability.RecordDBQuery("redis", "set", time.Since(started).Seconds(), err)
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

var _ storage.Cache = (*Cache)(nil)
