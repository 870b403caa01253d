package feature

import (
	"context"
	"time"
)

// Cache is the key/value cache consumed by CacheStore.
// Get reports a miss with ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Forever(ctx context.Context, key string, value []byte) error
	Has(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// FlushableCache is a Cache that can drop all of its entries.
type FlushableCache interface {
	Cache
	Flush(ctx context.Context) error
}
