package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

// defaultProjectionTTL applies when NewProjectionCache is given no TTL.
const defaultProjectionTTL = 5 * time.Minute

// ProjectionCache implements domain.ProjectionCache with JSON values under
// projection:{key}. The tier catalog is static for the life of the process,
// so entries only expire by TTL.
type ProjectionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewProjectionCache creates a ProjectionCache backed by the given Client.
func NewProjectionCache(c *Client, ttl time.Duration) *ProjectionCache {
	if ttl <= 0 {
		ttl = defaultProjectionTTL
	}
	return &ProjectionCache{rdb: c.Underlying(), ttl: ttl}
}

func projectionKey(key string) string { return "projection:" + key }

// Set stores value as JSON under key.
func (pc *ProjectionCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis: marshal projection %s: %w", key, err)
	}
	if err := pc.rdb.Set(ctx, projectionKey(key), data, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set projection %s: %w", key, err)
	}
	return nil
}

// Get decodes the value stored under key into dst. It returns
// domain.ErrNotFound on a miss.
func (pc *ProjectionCache) Get(ctx context.Context, key string, dst any) error {
	data, err := pc.rdb.Get(ctx, projectionKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("redis: get projection %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("redis: unmarshal projection %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ProjectionCache = (*ProjectionCache)(nil)
