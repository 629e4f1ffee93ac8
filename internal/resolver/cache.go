package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "perm:effective:version"

// Cache wraps Redis based caching of resolved permission sets with a
// global version counter. Any permission mutation bumps the version,
// which orphans every cached entry at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client degrades to
// pass-through resolution.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Get loads the cached resolution for a user, if present at the current
// version.
func (c *Cache) Get(ctx context.Context, userID int64) (Effective, bool) {
	if c == nil || c.client == nil {
		return Effective{}, false
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		return Effective{}, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return Effective{}, false
	}
	var eff Effective
	if err := json.Unmarshal(raw, &eff); err != nil {
		return Effective{}, false
	}
	return eff, true
}

// Put stores a resolution under the current version.
func (c *Cache) Put(ctx context.Context, eff Effective) {
	if c == nil || c.client == nil {
		return
	}
	key, err := c.key(ctx, eff.UserID)
	if err != nil {
		return
	}
	raw, err := json.Marshal(eff)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate bumps the version counter so every cached resolution is
// recomputed on next read. The user ids are accepted for interface
// symmetry; the bump is global because role template edits fan out to
// every user of the role anyway.
func (c *Cache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *Cache) key(ctx context.Context, userID int64) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("perm:effective:%d:%d", userID, ver), nil
}
