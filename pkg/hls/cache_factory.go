package hls

import (
	"fmt"
	"time"

	"github.com/fivetwenty-io/hls-client/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents the in-process cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents the shared NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeLocal and CacheTypeExternal are aliases matching the
	// service's documented "local" and "external" cache models.
	CacheTypeLocal    CacheType = "local"
	CacheTypeExternal CacheType = "external"
)

// CacheConfig configures the cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType `mapstructure:"type" yaml:"type"`

	// Memory cache configuration
	Memory *MemoryCacheConfig `mapstructure:"memory" yaml:"memory,omitempty"`

	// NATS KV cache configuration
	NATS *NATSKVConfig `mapstructure:"nats" yaml:"nats,omitempty"`

	// DefaultTTL applies to Set calls using DefaultExpiration. Clients
	// derive it from the token lifetime when left zero.
	DefaultTTL time.Duration `mapstructure:"default_ttl" yaml:"default_ttl,omitempty"`
}

// MemoryCacheConfig configures memory cache.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of items in the cache
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		Memory: &MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		},
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory, CacheTypeLocal, "":
		maxSize := constants.DefaultCacheSize
		if config.Memory != nil && config.Memory.MaxSize > 0 {
			maxSize = config.Memory.MaxSize
		}

		return NewMemoryCache(maxSize, WithDefaultTTL(config.DefaultTTL)), nil

	case CacheTypeNATS, CacheTypeExternal:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS, config.DefaultTTL)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// CacheBuilder helps build cache configurations.
type CacheBuilder struct {
	config *CacheConfig
}

// NewCacheBuilder creates a new cache builder.
func NewCacheBuilder() *CacheBuilder {
	return &CacheBuilder{
		config: &CacheConfig{
			Type: CacheTypeMemory,
		},
	}
}

// WithType sets the cache type.
func (b *CacheBuilder) WithType(cacheType CacheType) *CacheBuilder {
	b.config.Type = cacheType

	return b
}

// WithMemoryConfig sets memory cache configuration.
func (b *CacheBuilder) WithMemoryConfig(maxSize int) *CacheBuilder {
	b.config.Memory = &MemoryCacheConfig{
		MaxSize: maxSize,
	}

	return b
}

// WithNATSConfig sets NATS cache configuration.
func (b *CacheBuilder) WithNATSConfig(config *NATSKVConfig) *CacheBuilder {
	b.config.NATS = config

	return b
}

// WithDefaultTTL sets the default entry TTL.
func (b *CacheBuilder) WithDefaultTTL(ttl time.Duration) *CacheBuilder {
	b.config.DefaultTTL = ttl

	return b
}

// Config returns a copy of the configuration built so far.
func (b *CacheBuilder) Config() *CacheConfig {
	config := *b.config

	return &config
}

// Build creates the cache from the configuration.
func (b *CacheBuilder) Build() (Cache, error) {
	return NewCacheFromConfig(b.config)
}
