package snapshot

import (
	"context"
	"time"
)

// Repository persists snapshots and their audit trail.
// Reads of missing snapshots return ok == false rather than an error.
type Repository interface {
	// Save stores a new snapshot together with its events.
	Save(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, id string) (Snapshot, bool, error)
	// List returns the snapshots of a scope key, newest first.
	List(ctx context.Context, scope string) ([]Snapshot, error)
	// MarkRestored sets RestoredAt and RestoredBy and appends event.
	MarkRestored(ctx context.Context, id string, at time.Time, by *Actor, event Event) error
	// Delete removes the snapshot with its entries and events and reports
	// whether it existed. event is handed over for backends that keep an
	// audit trail beyond the snapshot; the bundled ones drop it together
	// with the history, so callers that need it must record it elsewhere.
	Delete(ctx context.Context, id string, event Event) (bool, error)
	// DeleteScope removes every snapshot of a scope key.
	DeleteScope(ctx context.Context, scope string) (int, error)
	// Prune removes snapshots created before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}
