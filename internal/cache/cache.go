// Package cache is the read-through cache for per-user reward views.
// Values are stored as JSON bytes so memory and redis behave alike.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache defines the caching interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value; ttl <= 0 uses the configured default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error

	Stats(ctx context.Context) (*CacheStats, error)
	Health(ctx context.Context) error
	Close() error
}

// CacheStats represents cache statistics
type CacheStats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	Deletes     int64   `json:"deletes"`
	Keys        int64   `json:"keys"`
	HitRatio    float64 `json:"hit_ratio"`
	ExpiredKeys int64   `json:"expired_keys"`
	EvictedKeys int64   `json:"evicted_keys"`
}

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// ===============================
// CACHE CONFIGURATION
// ===============================

// Config holds cache configuration
type Config struct {
	Provider        string // "memory", "redis", "none"
	TTL             time.Duration
	MaxKeys         int
	CleanupInterval time.Duration
	KeyPrefix       string

	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int

	// Now defaults to time.Now
	Now Clock
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:        "memory",
		TTL:             30 * time.Second,
		MaxKeys:         10000,
		CleanupInterval: time.Minute,
		PoolSize:        10,
		KeyPrefix:       "rewards:",
	}
}

// NewCache creates a new cache instance based on configuration
func NewCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(config.Provider) {
	case "redis":
		return NewRedisCache(config, logger)
	case "memory", "":
		logger.Info("Using in-memory cache", zap.Duration("ttl", config.TTL))
		return NewMemoryCache(config, logger), nil
	case "none":
		logger.Info("Caching disabled")
		return NewNoopCache(), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", config.Provider)
	}
}

// ===============================
// TYPED HELPERS
// ===============================

// Fetch returns the cached value for key, or calls fn and caches its result.
// Cache failures are logged and never fail the call.
func Fetch[T any](ctx context.Context, c Cache, logger *zap.Logger, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	if raw, found := c.Get(ctx, key); found {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			logger.Debug("Cache hit", zap.String("key", key))
			return cached, nil
		}
		logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
	}

	result, err := fn()
	if err != nil {
		return result, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warn("Failed to encode cache value", zap.String("key", key), zap.Error(err))
		return result, nil
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// ===============================
// NOOP CACHE
// ===============================

type noopCache struct{}

// NewNoopCache returns a cache that stores nothing
func NewNoopCache() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) ([]byte, bool)               { return nil, false }
func (noopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error                  { return nil }
func (noopCache) DeletePattern(context.Context, string) error              { return nil }
func (noopCache) Stats(context.Context) (*CacheStats, error)               { return &CacheStats{}, nil }
func (noopCache) Health(context.Context) error                             { return nil }
func (noopCache) Close() error                                             { return nil }
