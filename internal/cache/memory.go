package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ===============================
// MEMORY CACHE IMPLEMENTATION
// ===============================

// memoryCache implements Cache with a map, TTL expiry against an injected
// clock, and least-recently-used eviction at MaxKeys.
type memoryCache struct {
	mu         sync.Mutex
	items      map[string]*cacheItem
	maxKeys    int
	defaultTTL time.Duration
	now        Clock
	logger     *zap.Logger
	stats      CacheStats
	stopCh     chan struct{}
	stopOnce   sync.Once
}

type cacheItem struct {
	value      []byte
	expiresAt  time.Time
	accessedAt time.Time
}

// NewMemoryCache creates a new in-memory cache. A cleanup goroutine runs
// when CleanupInterval is positive; Close stops it.
func NewMemoryCache(config *Config, logger *zap.Logger) Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	maxKeys := config.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 10000
	}

	c := &memoryCache{
		items:      make(map[string]*cacheItem),
		maxKeys:    maxKeys,
		defaultTTL: config.TTL,
		now:        now,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go c.cleanup(config.CleanupInterval)
	}
	return c
}

// Get retrieves a value, dropping it if expired
func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	now := c.now()
	if !now.Before(item.expiresAt) {
		delete(c.items, key)
		c.stats.ExpiredKeys++
		c.stats.Misses++
		return nil, false
	}

	item.accessedAt = now
	c.stats.Hits++
	return append([]byte(nil), item.value...), true
}

// Set stores a copy of value
func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return fmt.Errorf("cache: no TTL for key %q", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxKeys {
		c.evictLRU()
	}

	now := c.now()
	c.items[key] = &cacheItem{
		value:      append([]byte(nil), value...),
		expiresAt:  now.Add(ttl),
		accessedAt: now,
	}
	c.stats.Sets++
	return nil
}

// Delete removes keys
func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if _, ok := c.items[key]; ok {
			delete(c.items, key)
			c.stats.Deletes++
		}
	}
	return nil
}

// DeletePattern removes keys matching a glob with a single trailing or
// leading '*'
func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if matchPattern(key, pattern) {
			delete(c.items, key)
			c.stats.Deletes++
		}
	}
	return nil
}

// Stats returns a copy of the counters
func (c *memoryCache) Stats(ctx context.Context) (*CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Keys = int64(len(c.items))
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return &stats, nil
}

// Health always succeeds for the memory cache
func (c *memoryCache) Health(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine
func (c *memoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *memoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
			expired++
		}
	}
	c.stats.ExpiredKeys += int64(expired)
	if expired > 0 {
		c.logger.Debug("Cache cleanup completed", zap.Int("expired_items", expired))
	}
}

// evictLRU drops the least recently accessed item. Caller holds mu.
func (c *memoryCache) evictLRU() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for key, item := range c.items {
		if oldestKey == "" || item.accessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.accessedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
		c.stats.EvictedKeys++
	}
}

func matchPattern(str, pattern string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(str, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(str, strings.TrimPrefix(pattern, "*"))
	default:
		return str == pattern
	}
}
