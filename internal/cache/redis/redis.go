// Package redis implements the cache port on top of a Redis server.
// TTL handling is delegated to Redis itself.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pavelzorin/shortlink/internal/cache"
	"github.com/pavelzorin/shortlink/internal/config"
)

// Cache is a Redis-backed implementation of the cache port.
type Cache struct {
	client *redis.Client
}

// New connects to the configured Redis server and verifies the connection
// with a ping before returning.
func New(ctx context.Context, cfg config.Redis) (*Cache, error) {
	const op = "cache.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return &Cache{client: client}, nil
}

// Get returns the value stored under key, or cache.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "cache.redis.Cache.Get"

	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, cache.ErrCacheMiss)
		}

		return nil, fmt.Errorf("%s: failed to get key: %w", op, err)
	}

	return value, nil
}

// Set stores value under key for the given TTL. A zero TTL means the entry
// does not expire.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "cache.redis.Cache.Set"

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}

	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	const op = "cache.redis.Cache.Delete"

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete key: %w", op, err)
	}

	return nil
}

// Close closes the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
