package rollout

import (
	"hash/crc32"
	"math/rand/v2"
)

// buckets is the modulus applied to the checksum. Bucket values span [0, 100].
const buckets = 101

// Bucket returns the consistent-hash bucket for a seed and scope identifier.
func Bucket(seed, scopeID string) uint32 {
	return crc32.ChecksumIEEE([]byte(seed+":"+scopeID)) % buckets
}

// Assign reports whether scopeID is included in a rollout of the given percentage.
//
// The percentage is clamped to [0, 100]. 0 always excludes and 100 always
// includes without hashing. In sticky mode the scope is included iff its
// bucket is below the percentage; seed falls back to featureKey when empty.
// In non-sticky mode every call draws a new number in [1, 100].
func Assign(scopeID, featureKey, seed string, percentage int, sticky bool) bool {
	percentage = Clamp(percentage)
	switch percentage {
	case 0:
		return false
	case 100:
		return true
	}

	if !sticky {
		return rand.IntN(100)+1 <= percentage
	}

	if seed == "" {
		seed = featureKey
	}
	return Bucket(seed, scopeID) < uint32(percentage)
}

// Clamp limits a percentage to [0, 100].
func Clamp(percentage int) int {
	return min(max(percentage, 0), 100)
}
