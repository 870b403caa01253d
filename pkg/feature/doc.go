// Package feature resolves and persists feature values per scope.
//
// A feature is a named value (usually a boolean flag, but strings, numbers,
// null and structured JSON values are supported) whose value depends on the
// scope it is asked for: a user, a team, a tenant, or no one in particular.
// Values are computed by resolvers on first use and then stored, so later
// reads return the same value without running the resolver again.
//
// # Architecture
//
// The package is built around four concepts:
//
//  1. Scopes - the entity a value belongs to, serialized as "kind|id"
//  2. Values - a tagged variant that keeps false, null, 0 and "" distinct
//  3. Resolvers - static values or functions computing a value for a scope
//  4. Stores - backends implementing the Store contract
//
// Four stores are provided:
//   - MemoryStore keeps values in process memory
//   - CacheStore keeps values in any Cache (redis, badger, in-process LRU)
//   - DurableStore keeps values in a Table and tolerates concurrent writers
//   - AuthorizationStore asks a Decider and stores nothing
//
// # Usage
//
//	store := feature.NewMemoryStore(feature.WithEventSink(feature.LogSink(log)))
//
//	_ = store.Define("beta", feature.ResolverFunc(func(ctx context.Context, s feature.Scope) (feature.Value, error) {
//		return feature.Bool(s.IDString() == "admin"), nil
//	}))
//
//	on, err := feature.Active(ctx, store, "beta", feature.NewScope("user", "admin"))
//	if err != nil {
//		// handle error
//	}
//
// # Unknown features
//
// Resolving a name that was never defined is not an error. The store emits
// EventUnknownFeatureResolved to its EventSink and returns UnknownValue,
// which is false. Nothing is stored, so defining the feature later takes
// effect immediately.
//
// # Resolvers
//
// Besides Static, Always and ResolverFunc the package ships:
//
//	TargetedResolver    - deny list, allow list, scope ids, groups, percentage
//	EnvironmentResolver - on in selected deployment environments
//	And, Or             - composites over IsActive
//
// Percentage rollouts use package rollout, so a scope included at 20% stays
// included at 30%.
//
// # Durable storage
//
// DurableStore fetches, computes and inserts. When an insert hits a unique
// violation because another process stored the same record first, the
// winning value is re-read and returned. ResolveMany does the same for a
// whole batch with a single Find and a single Insert, and re-runs the batch
// on conflict. Conflicts that outlast DurableConfig.RetryAttempts surface as
// ErrConcurrencyConflict.
//
// # Concurrency
//
// All stores are safe for concurrent use in the sense that their internal
// maps are locked. MemoryStore and CacheStore assume a single writer per key:
// concurrent writers may lose updates. Concurrent cache misses on one key
// within a process share a single resolver call in CacheStore and DurableStore.
//
// # Error Handling
//
//	ErrInvalidTTL            - cache TTL is not a non-negative integer of seconds
//	ErrConcurrencyConflict   - insert race persisted after all retries
//	ErrUnsupportedOperation  - mutation on AuthorizationStore
//	ErrUniqueViolation       - reported by Table implementations
//	ErrGroupNotFound         - GroupStore.Get on a missing group
//	ErrInvalidValue          - value cannot be represented
//	ErrInvalidResolver       - misconfigured resolver
//	ErrInvalidDefinition     - malformed definitions document
package feature
