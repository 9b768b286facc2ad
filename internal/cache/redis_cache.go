package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hungpv1995/blog-frontkit/internal/theme"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "theme:"

// RedisCache keeps each client's explicit theme choice so it survives the
// browser dropping the cookie.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ theme.Store = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func themeKey(clientID string) string {
	return keyPrefix + clientID
}

// Load returns the stored mode for clientID. ok is false on a miss or when
// the stored value is not a mode.
func (c *RedisCache) Load(ctx context.Context, clientID string) (theme.Mode, bool, error) {
	data, err := c.client.Get(ctx, themeKey(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil // Cache miss
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get theme from cache: %w", err)
	}

	mode, ok := theme.ParseMode(data)
	return mode, ok, nil
}

// Save stores mode for clientID and refreshes its TTL.
func (c *RedisCache) Save(ctx context.Context, clientID string, mode theme.Mode) error {
	if err := c.client.Set(ctx, themeKey(clientID), mode.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set theme in cache: %w", err)
	}
	return nil
}

// Invalidate forgets clientID's choice.
func (c *RedisCache) Invalidate(ctx context.Context, clientID string) error {
	if err := c.client.Del(ctx, themeKey(clientID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate theme: %w", err)
	}
	return nil
}

// Ping checks if Redis is available
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
