// Package featurekit resolves and persists feature flags per scope.
//
// A feature is a name bound to a resolver. Resolving a feature for a scope
// (a user, a team, the global scope) produces a value, which a store
// materializes so later resolutions return the same answer until it is
// changed or purged.
//
// Packages:
//
//   - pkg/feature: values, scopes, resolvers and the Store contract, with
//     in-memory, cache-tier, durable and delegated-authorization stores.
//   - pkg/snapshot: capture, restore and audit named sets of values per scope.
//   - pkg/policy: role-based grants used as a feature.Decider.
//   - pkg/rollout: sticky and non-sticky percentage bucketing.
//   - pkg/cache, pkg/redis, pkg/badger: feature.Cache backends.
//   - pkg/pg, pkg/mongo: feature.Table backends and durable repositories.
//   - pkg/metrics: Prometheus instrumentation for any store.
//   - pkg/config, pkg/logger, pkg/environment: configuration and logging.
//
// Basic usage:
//
//	store := feature.NewMemoryStore()
//	_ = store.Define("new-checkout", feature.NewRolloutResolver("new-checkout", feature.Rollout{Percentage: 25, Sticky: true}))
//
//	on, err := feature.Active(ctx, store, "new-checkout", feature.NewScope("user", userID))
package featurekit
