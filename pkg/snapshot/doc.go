// Package snapshot captures the feature values of a scope and replays them later.
//
// A snapshot is an immutable list of entries (feature, value, active flag)
// ordered by feature name, plus an append-only audit trail. The Engine reads
// and writes values through any feature.Store and persists snapshots in a
// Repository.
//
//	engine := snapshot.NewEngine(store, snapshot.NewMemoryRepository())
//
//	id, err := engine.Capture(ctx, scope, snapshot.WithLabel("before migration"))
//	// ... change features ...
//	err = engine.Restore(ctx, id, scope, &snapshot.Actor{Type: "user", ID: "42"})
//
// # Restore
//
// Restore is a full replace. Every stored feature of the scope is removed
// first, except reserved names starting with "__", then each entry is written
// back with its exact captured value, false and null included. Removing
// instead of writing false keeps ListStored accurate: features outside the
// snapshot are no longer stored for the scope.
//
// RestorePartial only writes the requested entries and leaves everything else
// untouched. Names the snapshot does not contain are skipped.
//
// Restoring a missing snapshot, or one captured for another scope, does nothing.
//
// # Repositories
//
//	MemoryRepository         - process memory, Prune reports zero
//	CacheRepository          - JSON documents in a feature.Cache, expiry by TTL
//	pg.SnapshotRepository    - PostgreSQL tables, Prune deletes by age
package snapshot
