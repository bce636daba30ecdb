package oauth

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// tokenCacheEntry holds a validated token's user info with an expiry.
type tokenCacheEntry struct {
	user      *GoogleUserInfo
	expiresAt time.Time
}

// TokenCache caches validated Google access tokens so that every MCP
// request does not hit the userinfo endpoint. Tokens are keyed by a
// SHA-256 digest of the raw token so the cache never stores the token
// itself.
type TokenCache struct {
	mu      sync.RWMutex
	entries map[string]tokenCacheEntry
	ttl     time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewTokenCache creates a token cache with the given TTL and starts a
// background sweeper that removes expired entries every cleanupInterval.
func NewTokenCache(ttl, cleanupInterval time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultTokenCacheTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	c := &TokenCache{
		entries: make(map[string]tokenCacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Get returns the cached user info for a token, or nil if the token is
// unknown or its entry has expired.
func (c *TokenCache) Get(token string) *GoogleUserInfo {
	key := hashToken(token)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.user
}

// Put records a validated token.
func (c *TokenCache) Put(token string, user *GoogleUserInfo) {
	key := hashToken(token)
	c.mu.Lock()
	c.entries[key] = tokenCacheEntry{
		user:      user,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries, including expired ones that
// have not been swept yet.
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop terminates the background sweeper. Safe to call multiple times.
func (c *TokenCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *TokenCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *TokenCache) removeExpired() {
	now := time.Now()
	c.mu.Lock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
