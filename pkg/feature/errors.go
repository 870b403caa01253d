package feature

import "errors"

var (
	// ErrInvalidTTL is a configuration error: the cache TTL is not a
	// non-negative integer number of seconds. Reported when a write needs it.
	ErrInvalidTTL = errors.New("invalid feature cache ttl")

	// ErrConcurrencyConflict indicates a uniqueness conflict that persisted
	// after all retries.
	ErrConcurrencyConflict = errors.New("feature record concurrency conflict")

	// ErrUnsupportedOperation is returned by read-only stores for every mutation.
	ErrUnsupportedOperation = errors.New("unsupported feature store operation")

	// ErrUniqueViolation is reported by Table implementations when an insert
	// collides with an existing (name, scope) record.
	ErrUniqueViolation = errors.New("feature record already exists")

	// ErrGroupNotFound indicates that the requested feature group does not exist.
	ErrGroupNotFound = errors.New("feature group not found")

	// ErrInvalidValue indicates a value that cannot be represented as a feature value.
	ErrInvalidValue = errors.New("invalid feature value")

	// ErrInvalidResolver indicates an issue with a resolver's configuration.
	ErrInvalidResolver = errors.New("invalid feature resolver")

	// ErrInvalidDefinition indicates a malformed feature definitions document.
	ErrInvalidDefinition = errors.New("invalid feature definition")
)
