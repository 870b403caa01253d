package feature

import (
	"context"
	"time"
)

// RecordKey identifies a stored value. Tables hold at most one record per key.
type RecordKey struct {
	Name  string
	Scope string // Scope.Key()
}

// Record is a materialized feature value.
type Record struct {
	Name      string
	Scope     string
	Value     Value
	ExpiresAt time.Time // zero means the record never expires
}

// Key returns the record's unique key.
func (r Record) Key() RecordKey {
	return RecordKey{Name: r.Name, Scope: r.Scope}
}

// Expired reports whether the record is expired at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Table is the tabular storage consumed by DurableStore.
type Table interface {
	// Find returns the records matching any of keys, expired ones included.
	Find(ctx context.Context, keys []RecordKey) ([]Record, error)
	// Insert adds records. If any key already exists nothing is inserted
	// and an error matching ErrUniqueViolation is returned.
	Insert(ctx context.Context, records []Record) error
	// Upsert inserts the record or replaces the existing one.
	Upsert(ctx context.Context, record Record) error
	// Delete removes the records with the given keys.
	Delete(ctx context.Context, keys []RecordKey) error
	// DeleteNames removes every record of the given features.
	DeleteNames(ctx context.Context, names []string) error
	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error
	// DeleteExpired removes records expired at now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// Names returns the sorted feature names with at least one live record.
	Names(ctx context.Context, now time.Time) ([]string, error)
}
