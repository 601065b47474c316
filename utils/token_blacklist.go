package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "session:revoked:"

// TokenBlacklist remembers revoked session tokens until they would have expired anyway.
// It uses Redis when a client is given and an in-memory map otherwise.
type TokenBlacklist struct {
	rc  *redis.Client
	now func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewTokenBlacklist creates a blacklist. rc may be nil.
func NewTokenBlacklist(rc *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rc: rc, now: time.Now, entries: map[string]time.Time{}}
}

// Revoke marks token as unusable until expiresAt. Already expired tokens are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 || token == "" {
		return
	}
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := b.rc.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
		if err == nil {
			return
		}
		Sugar.Warnf("revoke token in redis failed, keeping it in memory: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanupLocked()
	b.entries[token] = expiresAt
}

// IsRevoked reports whether token was revoked before its natural expiry.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := b.rc.Exists(ctx, blacklistPrefix+token).Result()
		if err == nil && n > 0 {
			return true
		}
		if err != nil {
			Sugar.Debugf("blacklist lookup failed, checking memory: %v", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	expiresAt, ok := b.entries[token]
	if !ok {
		return false
	}
	if !b.now().Before(expiresAt) {
		delete(b.entries, token)
		return false
	}
	return true
}

func (b *TokenBlacklist) cleanupLocked() {
	now := b.now()
	for token, expiresAt := range b.entries {
		if !now.Before(expiresAt) {
			delete(b.entries, token)
		}
	}
}
