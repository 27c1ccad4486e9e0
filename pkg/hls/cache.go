package hls

import (
	"context"
	"errors"
	"time"
)

// Cache is a string key-value store with per-entry expiry. Implementations
// must be safe for concurrent use, and Get must never return an expired value.
type Cache interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for ttl. DefaultExpiration uses the
	// backend's default TTL and NoExpiration keeps the entry until deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Has reports whether key holds an unexpired value.
	Has(ctx context.Context, key string) bool
}

const (
	// DefaultExpiration selects the backend's configured default TTL.
	DefaultExpiration time.Duration = 0

	// NoExpiration keeps an entry until it is deleted.
	NoExpiration time.Duration = -1
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrInvalidCacheKey      = errors.New("invalid cache key")
)

// expiryFor resolves ttl against the default and returns the absolute expiry.
// The zero time means the entry never expires.
func expiryFor(now time.Time, ttl, defaultTTL time.Duration) time.Time {
	if ttl == DefaultExpiration {
		ttl = defaultTTL
	}

	if ttl <= 0 {
		return time.Time{}
	}

	return now.Add(ttl)
}

// expired reports whether an entry expiring at expiresAt is gone at now.
// An entry is absent from the exact instant its TTL elapses.
func expired(now, expiresAt time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}
