// Package badger stores feature values in an embedded BadgerDB.
//
// Cache implements feature.FlushableCache, so a feature.CacheStore or a
// snapshot.CacheRepository can persist to local disk without a server:
//
//	db, err := badger.Open(badger.Config{Path: "data/features", SyncWrites: true})
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	store := feature.NewCacheStore(badger.NewCache(db), feature.CacheConfig{Prefix: "features"})
//
// Expiry uses Badger's entry TTL; expired keys disappear from reads
// immediately and from disk on compaction.
package badger
