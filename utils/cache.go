package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = time.Hour

// ErrCacheMiss is returned by Cache.Get when the key is absent or Redis is unavailable.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a small JSON cache on top of Redis. A nil *Cache or a Cache without a client
// misses on every read and ignores writes.
type Cache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewCache returns a Cache storing entries for ttl (one hour when ttl <= 0).
func NewCache(rc *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{rc: rc, ttl: ttl}
}

// GetJSON loads key into v.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) error {
	if c == nil || c.rc == nil {
		return ErrCacheMiss
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return ErrCacheMiss
	}
	if err := json.Unmarshal(b, v); err != nil {
		return ErrCacheMiss
	}
	return nil
}

// SetJSON marshals v and stores it under key for the cache's ttl.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	c.SetJSONFor(ctx, key, v, 0)
}

// SetJSONFor is SetJSON with a per-entry ttl; it never outlives the cache's own ttl.
func (c *Cache) SetJSONFor(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if c == nil || c.rc == nil {
		return
	}
	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.rc == nil || len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Del(ctx, keys...).Err(); err != nil {
		Sugar.Warnf("cache delete failed keys=%v err=%v", keys, err)
	}
}
