package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process cache with per-entry expiry.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates a memory cache whose expired entries are purged
// every cleanup interval.
func NewMemoryCache(cleanup time.Duration) Cache {
	return &MemoryCache{c: gocache.New(gocache.NoExpiration, cleanup)}
}

// Get retrieves a value from the cache.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	return data, ok, nil
}

// GetWithTTL retrieves a value and its remaining lifetime.
func (m *MemoryCache) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	v, exp, ok := m.c.GetWithExpiration(key)
	if !ok {
		return nil, 0, false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, 0, false, nil
	}
	if exp.IsZero() {
		return data, 0, true, nil
	}
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil, 0, false, nil
	}
	return data, ttl, true, nil
}

// Set stores a value in the cache.
func (m *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, data, ttl)
	return nil
}

// Delete removes a value from the cache.
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Len returns the number of entries, expired ones included until purged.
func (m *MemoryCache) Len() int {
	return m.c.ItemCount()
}

// Close drops every entry.
func (m *MemoryCache) Close() error {
	m.c.Flush()
	return nil
}

var (
	_ Cache     = (*MemoryCache)(nil)
	_ TTLGetter = (*MemoryCache)(nil)
)
