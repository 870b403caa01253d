// Package redis connects to Redis and exposes it as a feature.Cache.
//
// Connect retries the initial PING according to Config, and Healthcheck
// turns a client into a liveness check. Cache adapts any
// redis.UniversalClient to the feature.Cache interface, so a
// feature.CacheStore can share values across processes:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := feature.NewCacheStore(redis.NewCache(client, cfg.ScanBatchSize),
//		feature.CacheConfig{Prefix: "features", TTL: "86400"})
//
// Cache.Put with a non-positive TTL deletes the key. Cache.Flush issues
// FLUSHDB and therefore expects a database dedicated to feature values.
//
// # Errors
//
// Sentinel errors (ErrRedisNotReady, ErrHealthcheckFailed, ...) wrap the
// go-redis error with errors.Join, so both can be matched with errors.Is.
package redis
