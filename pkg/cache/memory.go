package cache

import (
	"context"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// Config configures a MemoryCache.
type Config struct {
	Capacity int `env:"FEATURE_MEMORY_CACHE_CAPACITY" envDefault:"10000"`
}

// MemoryCache is an in-process feature.Cache backed by an LRU.
// Capacity bounds entries stored with a TTL. Entries stored with Forever are
// pinned outside the LRU and stay until forgotten or flushed.
type MemoryCache struct {
	lru *LRU[string, []byte]

	mu     sync.RWMutex
	pinned map[string][]byte
}

var _ feature.FlushableCache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache holding at most cfg.Capacity entries.
func NewMemoryCache(cfg Config) *MemoryCache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 10000
	}
	return &MemoryCache{
		lru:    NewLRU[string, []byte](cfg.Capacity),
		pinned: make(map[string][]byte),
	}
}

// SetClock overrides the time source used for TTL expiry.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.lru.SetClock(now)
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	v, ok := c.pinned[key]
	c.mu.RUnlock()
	if ok {
		return slices.Clone(v), true, nil
	}

	v, ok = c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.unpin(key)
	if ttl <= 0 {
		// A zero TTL expires immediately.
		c.lru.Remove(key)
		return nil
	}
	c.lru.PutTTL(key, slices.Clone(value), ttl)
	return nil
}

func (c *MemoryCache) Forever(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.pinned[key] = slices.Clone(value)
	c.mu.Unlock()
	c.lru.Remove(key)
	return nil
}

func (c *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	_, ok := c.pinned[key]
	c.mu.RUnlock()
	return ok || c.lru.Has(key), nil
}

func (c *MemoryCache) Forget(_ context.Context, key string) error {
	c.unpin(key)
	c.lru.Remove(key)
	return nil
}

func (c *MemoryCache) Flush(_ context.Context) error {
	c.mu.Lock()
	clear(c.pinned)
	c.mu.Unlock()
	c.lru.Clear()
	return nil
}

// Len returns the number of entries, pinned ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pinned) + c.lru.Len()
}

func (c *MemoryCache) unpin(key string) {
	c.mu.Lock()
	delete(c.pinned, key)
	c.mu.Unlock()
}

// Keys returns the live keys matching a path.Match pattern, sorted.
func (c *MemoryCache) Keys(_ context.Context, pattern string) ([]string, error) {
	c.mu.RLock()
	keys := make([]string, 0, len(c.pinned))
	for k := range c.pinned {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	var out []string
	for _, k := range append(keys, c.lru.Keys()...) {
		ok, err := path.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out, nil
}
