// Package cache implements the Result Cache: a content-addressed,
// TTL-bounded mapping from text fingerprint to prior analysis result.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arborly/paperqueue/internal/utils"
)

// Fingerprint returns the hex digest used as a cache key and as an Item's
// cache_key. Canonicalization is limited to trimming; the caller has
// already assembled text_blob from the request's non-empty fields.
func Fingerprint(textBlob string) string {
	normalized := strings.TrimSpace(textBlob)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	result    map[string]any
	writtenAt time.Time
}

// Cache is a bounded LRU of analysis results keyed by fingerprint, with a
// per-entry TTL checked on read. Thread-safe.
type Cache struct {
	lru *lru.Cache[string, *entry]
	ttl time.Duration
	mu  sync.RWMutex
}

// New creates a Cache holding at most maxSize entries, each valid for ttl
// after it was written.
func New(maxSize int, ttl time.Duration) (*Cache, error) {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	backing, err := lru.New[string, *entry](maxSize)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create result cache: %w", err)
	}

	return &Cache{lru: backing, ttl: ttl}, nil
}

// Get returns the cached result for key, or false if absent or expired.
func (c *Cache) Get(key string) (map[string]any, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	cached, ok := c.lru.Get(key)
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Since(cached.writtenAt) > c.ttl {
		// Re-check under the write lock: another goroutine may have Put() a
		// fresh value between the RUnlock above and acquiring Lock here.
		c.mu.Lock()
		current, stillExists := c.lru.Get(key)
		if stillExists && time.Since(current.writtenAt) > c.ttl {
			c.lru.Remove(key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return cached.result, true
}

// Put writes result under key with a fresh TTL.
func (c *Cache) Put(key string, result map[string]any) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &entry{result: result, writtenAt: utils.NowUTC()})
}

// Len returns the current number of resident entries, expired or not.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}
