package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// Cache implements feature.Cache on top of a Redis client.
type Cache struct {
	db            redis.UniversalClient
	scanBatchSize int64
}

var _ feature.FlushableCache = (*Cache)(nil)

// NewCache wraps client. A non-positive scanBatchSize defaults to 1000.
func NewCache(client redis.UniversalClient, scanBatchSize int64) *Cache {
	if scanBatchSize <= 0 {
		scanBatchSize = 1000
	}
	return &Cache{db: client, scanBatchSize: scanBatchSize}
}

// Get returns ok == false for missing keys.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Put stores value for ttl. A non-positive ttl deletes the key, matching
// an entry that expires immediately.
func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Forget(ctx, key)
	}
	return c.db.Set(ctx, key, value, ttl).Err()
}

// Forever stores value without expiry.
func (c *Cache) Forever(ctx context.Context, key string, value []byte) error {
	return c.db.Set(ctx, key, value, 0).Err()
}

func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	n, err := c.db.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Cache) Forget(ctx context.Context, key string) error {
	return c.db.Del(ctx, key).Err()
}

// Flush clears the whole database with FLUSHDB. Use a dedicated database.
func (c *Cache) Flush(ctx context.Context) error {
	return c.db.FlushDB(ctx).Err()
}

// Keys returns the keys matching a glob pattern using SCAN, so Redis is not blocked.
func (c *Cache) Keys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.db.Scan(ctx, cursor, pattern, c.scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if cursor = next; cursor == 0 {
			return keys, nil
		}
	}
}

// Conn returns the underlying client.
func (c *Cache) Conn() redis.UniversalClient {
	return c.db
}
