// ABOUTME: In-memory cache implementation backed by patrickmn/go-cache
// ABOUTME: Holds robots.txt bodies for the life of the process with TTL expiry

package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"content-fetch-api/core/interfaces"
	"content-fetch-api/pkg/config"
)

// MemoryCache implements the Cache interface using in-memory storage
type MemoryCache struct {
	items *cache.Cache
}

// NewMemoryCache creates an in-memory cache. Entries stored with a zero TTL
// never expire.
func NewMemoryCache(cfg config.MemoryConfig) *MemoryCache {
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &MemoryCache{items: cache.New(cache.NoExpiration, cleanup)}
}

// Get retrieves a copy of the cached value
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, ok := c.items.Get(key)
	if !ok {
		return nil, interfaces.ErrCacheMiss
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, nil
}

// Set stores a copy of value with the given TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	c.items.Set(key, stored, ttl)
	return nil
}

// Delete removes a key from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.items.Delete(key)
	return nil
}

// Len reports the number of stored entries, expired ones included until swept
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}
