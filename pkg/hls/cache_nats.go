package hls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/hls-client/internal/constants"
)

// NATSKVConfig configures the JetStream key-value backend.
type NATSKVConfig struct {
	// URL of the NATS server(s), comma separated.
	URL string `mapstructure:"url" yaml:"url"`

	// Bucket is created on first use when it does not exist.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// CredentialsFile is an optional NATS user credentials file.
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`

	// Token is an optional NATS auth token.
	Token string `mapstructure:"token" yaml:"token,omitempty"`

	// MaxAge bounds how long the bucket keeps any value. Per-entry TTLs are
	// enforced by the cache itself.
	MaxAge time.Duration `mapstructure:"max_age" yaml:"max_age,omitempty"`

	// Replicas of the bucket stream when it is created.
	Replicas int `mapstructure:"replicas" yaml:"replicas,omitempty"`

	// ConnectTimeout bounds the initial connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout,omitempty"`
}

// KeyValueStore is the subset of nats.KeyValue the cache uses.
type KeyValueStore interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
}

// natsRecord is the stored form of an entry.
type natsRecord struct {
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NATSKVCache is a Cache shared between nodes through a NATS JetStream
// key-value bucket.
type NATSKVCache struct {
	kv         KeyValueStore
	conn       *nats.Conn
	defaultTTL time.Duration
	now        func() time.Time
}

// NewNATSKVCache connects to NATS and opens (or creates) the bucket.
func NewNATSKVCache(config *NATSKVConfig, defaultTTL time.Duration) (*NATSKVCache, error) {
	if config == nil {
		return nil, ErrNATSConfigRequired
	}

	url := config.URL
	if url == "" {
		url = constants.DefaultNATSURL
	}

	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = constants.NATSConnectTimeout
	}

	opts := []nats.Option{
		nats.Name(constants.DefaultUserAgent),
		nats.Timeout(timeout),
	}

	if config.CredentialsFile != "" {
		opts = append(opts, nats.UserCredentials(config.CredentialsFile))
	}

	if config.Token != "" {
		opts = append(opts, nats.Token(config.Token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	kv, err := openBucket(conn, config)
	if err != nil {
		conn.Close()

		return nil, err
	}

	cache := NewNATSKVCacheFromStore(kv, defaultTTL)
	cache.conn = conn

	return cache, nil
}

func openBucket(conn *nats.Conn, config *NATSKVConfig) (nats.KeyValue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "hls client shared tokens",
			History:     1,
			TTL:         config.MaxAge,
			Replicas:    config.Replicas,
		})
	}

	if err != nil {
		return nil, fmt.Errorf("opening key-value bucket %s: %w", bucket, err)
	}

	return kv, nil
}

// NATSKVCacheOption configures a NATSKVCache.
type NATSKVCacheOption func(*NATSKVCache)

// WithNATSClock replaces time.Now, mainly for tests.
func WithNATSClock(now func() time.Time) NATSKVCacheOption {
	return func(c *NATSKVCache) {
		c.now = now
	}
}

// NewNATSKVCacheFromStore wraps an already opened bucket.
func NewNATSKVCacheFromStore(kv KeyValueStore, defaultTTL time.Duration, opts ...NATSKVCacheOption) *NATSKVCache {
	cache := &NATSKVCache{
		kv:         kv,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Get returns the value stored under key.
func (c *NATSKVCache) Get(ctx context.Context, key string) (string, bool, error) {
	natsKey, err := natsKeyFor(key)
	if err != nil {
		return "", false, err
	}

	entry, err := c.kv.Get(natsKey)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("reading %s from NATS: %w", natsKey, err)
	}

	var record natsRecord

	err = json.Unmarshal(entry.Value(), &record)
	if err != nil {
		return "", false, fmt.Errorf("decoding cached %s: %w", natsKey, err)
	}

	if record.ExpiresAt != nil && expired(c.now(), *record.ExpiresAt) {
		_ = c.kv.Delete(natsKey)

		return "", false, nil
	}

	return record.Value, true, nil
}

// Set stores value under key for ttl.
func (c *NATSKVCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	natsKey, err := natsKeyFor(key)
	if err != nil {
		return err
	}

	record := natsRecord{Value: value}

	if exp := expiryFor(c.now(), ttl, c.defaultTTL); !exp.IsZero() {
		record.ExpiresAt = &exp
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding cached %s: %w", natsKey, err)
	}

	_, err = c.kv.Put(natsKey, data)
	if err != nil {
		return fmt.Errorf("writing %s to NATS: %w", natsKey, err)
	}

	return nil
}

// Delete removes key.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	natsKey, err := natsKeyFor(key)
	if err != nil {
		return err
	}

	err = c.kv.Delete(natsKey)
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting %s from NATS: %w", natsKey, err)
	}

	return nil
}

// Has reports whether key holds an unexpired value.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, ok, err := c.Get(ctx, key)

	return ok && err == nil
}

// Close drains the NATS connection when the cache owns it.
func (c *NATSKVCache) Close() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Drain()
	if err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}

// natsKeyFor maps a cache key onto the NATS key alphabet [-/_=.a-zA-Z0-9].
// Colons become dots so "ns:key" style keys keep their hierarchy.
func natsKeyFor(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidCacheKey)
	}

	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '/', r == '_', r == '=', r == '.':
			return r
		case r == ':':
			return '.'
		default:
			return '_'
		}
	}, key)

	mapped = strings.Trim(mapped, ".")
	if mapped == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidCacheKey, key)
	}

	return mapped, nil
}
