// Package ristretto adapts dgraph-io/ristretto into the byte-value cache
// port. It serves as the in-process L1 in front of Redis for tenant
// resolution, so reads must never block and misses are normal.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a size-bounded in-process cache keyed by string.
type Cache struct {
	inner *ristretto.Cache[string, []byte]
}

// New builds a cache admitting up to maxBytes of serialized values. Tenant
// records are small, so the counter budget assumes roughly one entry per
// hundred bytes of capacity.
func New(maxBytes int64) (*Cache, error) {
	counters := maxBytes / 100 * 10
	inner, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get reports the cached value for key, if any. It never returns an error;
// the signature matches the tiered cache port.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.inner.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value under key, costed at its length, expiring after ttl.
// Ristretto may drop the write under admission pressure; callers treat the
// cache as best effort.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.inner.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete evicts key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.inner.Del(key)
	return nil
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.inner.Close()
}
