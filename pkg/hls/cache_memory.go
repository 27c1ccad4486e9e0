package hls

import (
	"context"
	"sync"
	"time"

	"github.com/fivetwenty-io/hls-client/internal/constants"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-process Cache for single node deployments. Expired
// entries are dropped lazily on access or by Cleanup.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]memoryItem
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time
}

// MemoryCacheOption configures a MemoryCache.
type MemoryCacheOption func(*MemoryCache)

// WithDefaultTTL sets the TTL used by Set with DefaultExpiration.
func WithDefaultTTL(ttl time.Duration) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.defaultTTL = ttl
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a cache holding at most maxSize entries.
func NewMemoryCache(maxSize int, opts ...MemoryCacheOption) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	cache := &MemoryCache{
		items:   make(map[string]memoryItem),
		maxSize: maxSize,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Get returns the value stored under key.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return "", false, nil
	}

	if expired(c.now(), item.expiresAt) {
		delete(c.items, key)

		return "", false, nil
	}

	return item.value, true, nil
}

// Set stores value under key for ttl.
func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictLocked(now)
	}

	c.items[key] = memoryItem{
		value:     value,
		expiresAt: expiryFor(now, ttl, c.defaultTTL),
	}

	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)

	return nil
}

// Has reports whether key holds an unexpired value.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, ok, _ := c.Get(ctx, key)

	return ok
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]memoryItem)

	return nil
}

// Cleanup drops all expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpiredLocked(c.now())
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

func (c *MemoryCache) purgeExpiredLocked(now time.Time) {
	for key, item := range c.items {
		if expired(now, item.expiresAt) {
			delete(c.items, key)
		}
	}
}

// evictLocked makes room for one entry, dropping expired entries first and
// then the entry closest to expiry.
func (c *MemoryCache) evictLocked(now time.Time) {
	c.purgeExpiredLocked(now)

	if len(c.items) < c.maxSize {
		return
	}

	var (
		victim string
		best   time.Time
		found  bool
	)

	for key, item := range c.items {
		if !found || expiresSooner(item.expiresAt, best) {
			victim, best, found = key, item.expiresAt, true
		}
	}

	if found {
		delete(c.items, victim)
	}
}

// expiresSooner orders expiry times with "never" last.
func expiresSooner(a, b time.Time) bool {
	switch {
	case a.IsZero():
		return false
	case b.IsZero():
		return true
	default:
		return a.Before(b)
	}
}
