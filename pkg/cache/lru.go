package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero for entries without expiry
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// LRU is a bounded, thread-safe cache with optional per-entry expiry.
// At capacity the least recently used entry is evicted. Expired entries are
// dropped lazily when touched.
type LRU[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
	mu       sync.Mutex
	now      func() time.Time
	onEvict  func(key K, value V)
}

// NewLRU creates a cache holding at most capacity entries.
// It panics if capacity is not positive.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: LRU capacity must be positive")
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// OnEvict sets a callback run for entries removed by capacity, expiry or Clear.
func (c *LRU[K, V]) OnEvict(fn func(key K, value V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// SetClock overrides the time source used for expiry.
func (c *LRU[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns a live value and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.live(key); e != nil {
		c.order.MoveToFront(e)
		return e.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Has reports whether key holds a live value without touching recency.
func (c *LRU[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live(key) != nil
}

// Put stores value without expiry.
func (c *LRU[K, V]) Put(key K, value V) {
	c.PutTTL(key, value, 0)
}

// PutTTL stores value for ttl. A non-positive ttl means no expiry.
func (c *LRU[K, V]) PutTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if e, ok := c.items[key]; ok {
		c.order.MoveToFront(e)
		ent := e.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

// Remove deletes key and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.remove(e)
		return true
	}
	return false
}

// Keys returns the live keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]K, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		if ent := e.Value.(*entry[K, V]); !ent.expired(now) {
			keys = append(keys, ent.key)
		}
	}
	return keys
}

// Len returns the number of entries, expired ones not yet dropped included.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes every entry.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for _, e := range c.items {
			ent := e.Value.(*entry[K, V])
			c.onEvict(ent.key, ent.value)
		}
	}
	clear(c.items)
	c.order.Init()
}

// live returns the element for key, dropping it if expired. Lock must be held.
func (c *LRU[K, V]) live(key K) *list.Element {
	e, ok := c.items[key]
	if !ok {
		return nil
	}
	if e.Value.(*entry[K, V]).expired(c.now()) {
		c.remove(e)
		return nil
	}
	return e
}

// Lock must be held.
func (c *LRU[K, V]) remove(e *list.Element) {
	c.order.Remove(e)
	ent := e.Value.(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
