// Package rollout decides percentage-based feature inclusion for a scope.
//
// Assign is a pure function. In sticky mode the decision is derived from a
// CRC32 checksum of the seed and the scope identifier, so the same inputs give
// the same answer on every call, in every process and in every environment.
// Buckets are stable while the percentage changes: raising the percentage only
// ever adds scopes to the included set.
//
// # Usage
//
//	import "github.com/dmitrymomot/featurekit/pkg/rollout"
//
//	// 25% of users, stable per user. The seed defaults to the feature name.
//	if rollout.Assign(userID, "new-ui", "", 25, true) {
//		// serve the new UI
//	}
//
// Non-sticky mode draws a fresh random number on every call and is meant for
// sampling, not for user-facing rollouts.
package rollout
