// Package cache provides a bounded in-process cache with per-entry expiry
// and a feature.Cache adapter on top of it.
//
// LRU evicts the least recently used entry once capacity is reached. Entries
// stored with a TTL are dropped lazily the next time they are touched.
//
//	c := cache.NewLRU[string, []byte](1000)
//	c.PutTTL("session:abc", data, time.Minute)
//	v, ok := c.Get("session:abc")
//
// MemoryCache adapts LRU to the feature.Cache interface so a CacheStore can
// run without external infrastructure:
//
//	store := feature.NewCacheStore(cache.NewMemoryCache(cache.Config{Capacity: 10000}),
//		feature.CacheConfig{Prefix: "features", TTL: "3600"})
//
// Values are copied on the way in and out, so callers may reuse their buffers.
// Capacity eviction applies only to entries written with a TTL. Forever
// entries, such as a CacheStore's key indexes, are pinned until forgotten.
package cache
