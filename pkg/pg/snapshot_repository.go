package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/featurekit/pkg/snapshot"
)

// SnapshotRepository stores snapshots in the feature_snapshots tables.
// Entries and events cascade with their snapshot.
type SnapshotRepository struct {
	db DB
}

var _ snapshot.Repository = (*SnapshotRepository)(nil)

// NewSnapshotRepository returns a repository over db. Run Migrate first.
func NewSnapshotRepository(db DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const (
	insertSnapshot = `
INSERT INTO feature_snapshots (id, scope, label, metadata, created_by, created_at, restored_at, restored_by)
VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8::jsonb)`

	insertSnapshotEntry = `
INSERT INTO feature_snapshot_entries (snapshot_id, feature, value, is_active)
VALUES ($1, $2, $3::jsonb, $4)`

	insertSnapshotEvent = `
INSERT INTO feature_snapshot_events (snapshot_id, type, performed_by, metadata, occurred_at)
VALUES ($1, $2, $3::jsonb, $4::jsonb, $5)`

	selectSnapshots = `
SELECT id, scope, label, metadata::text, created_by::text, created_at, restored_at, restored_by::text
FROM feature_snapshots`
)

func (r *SnapshotRepository) Save(ctx context.Context, s snapshot.Snapshot) error {
	meta, err := encodeJSON(nonNilMap(s.Metadata))
	if err != nil {
		return err
	}
	createdBy, err := encodeActor(s.CreatedBy)
	if err != nil {
		return err
	}
	restoredBy, err := encodeActor(s.RestoredBy)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(insertSnapshot, s.ID, s.Scope, s.Label, meta, createdBy, s.CreatedAt, s.RestoredAt, restoredBy)
		for _, e := range s.Entries {
			raw, err := encodeJSON(e.Value)
			if err != nil {
				return err
			}
			batch.Queue(insertSnapshotEntry, s.ID, e.Feature, raw, e.IsActive)
		}
		for _, ev := range s.Events {
			if err := queueEvent(batch, s.ID, ev); err != nil {
				return err
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.ID, err)
	}
	return nil
}

func (r *SnapshotRepository) Get(ctx context.Context, id string) (snapshot.Snapshot, bool, error) {
	list, err := r.load(ctx, selectSnapshots+` WHERE id = $1`, id)
	if err != nil {
		return snapshot.Snapshot{}, false, err
	}
	if len(list) == 0 {
		return snapshot.Snapshot{}, false, nil
	}
	return list[0], true, nil
}

func (r *SnapshotRepository) List(ctx context.Context, scope string) ([]snapshot.Snapshot, error) {
	return r.load(ctx, selectSnapshots+` WHERE scope = $1 ORDER BY created_at DESC, id DESC`, scope)
}

func (r *SnapshotRepository) MarkRestored(ctx context.Context, id string, at time.Time, by *snapshot.Actor, event snapshot.Event) error {
	restoredBy, err := encodeActor(by)
	if err != nil {
		return err
	}
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE feature_snapshots SET restored_at = $2, restored_by = $3::jsonb WHERE id = $1`, id, at, restoredBy)
		if err != nil || tag.RowsAffected() == 0 {
			return err
		}
		batch := &pgx.Batch{}
		if err := queueEvent(batch, id, event); err != nil {
			return err
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("mark snapshot %s restored: %w", id, err)
	}
	return nil
}

// Delete appends event and deletes the snapshot in one transaction.
func (r *SnapshotRepository) Delete(ctx context.Context, id string, event snapshot.Event) (bool, error) {
	var deleted bool
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM feature_snapshots WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if IsNotFoundError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		batch := &pgx.Batch{}
		if err := queueEvent(batch, id, event); err != nil {
			return err
		}
		batch.Queue(`DELETE FROM feature_snapshots WHERE id = $1`, id)
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return deleted, nil
}

func (r *SnapshotRepository) DeleteScope(ctx context.Context, scope string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM feature_snapshots WHERE scope = $1`, scope)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots of %s: %w", scope, err)
	}
	return int(tag.RowsAffected()), nil
}

// Prune deletes snapshots created before cutoff.
func (r *SnapshotRepository) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM feature_snapshots WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// load runs a snapshot query and attaches entries and events to each row.
func (r *SnapshotRepository) load(ctx context.Context, query string, args ...any) ([]snapshot.Snapshot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanSnapshot)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	if len(list) == 0 {
		return []snapshot.Snapshot{}, nil
	}

	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i, s := range list {
		ids[i] = s.ID
		index[s.ID] = i
	}

	rows, err = r.db.Query(ctx, `
SELECT snapshot_id, feature, value::text, is_active
FROM feature_snapshot_entries
WHERE snapshot_id = ANY($1)
ORDER BY snapshot_id, feature COLLATE "C"`, ids)
	if err != nil {
		return nil, fmt.Errorf("query snapshot entries: %w", err)
	}
	var (
		sid string
		raw string
		e   snapshot.Entry
	)
	_, err = pgx.ForEachRow(rows, []any{&sid, &e.Feature, &raw, &e.IsActive}, func() error {
		entry := snapshot.Entry{Feature: e.Feature, IsActive: e.IsActive}
		if err := json.Unmarshal([]byte(raw), &entry.Value); err != nil {
			return fmt.Errorf("%w: entry %s of %s: %w", snapshot.ErrCorruptSnapshot, e.Feature, sid, err)
		}
		s := &list[index[sid]]
		s.Entries = append(s.Entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query snapshot entries: %w", err)
	}

	rows, err = r.db.Query(ctx, `
SELECT snapshot_id, type, performed_by::text, metadata::text, occurred_at
FROM feature_snapshot_events
WHERE snapshot_id = ANY($1)
ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("query snapshot events: %w", err)
	}
	var (
		evType      string
		performedBy *string
		meta        string
		at          time.Time
	)
	_, err = pgx.ForEachRow(rows, []any{&sid, &evType, &performedBy, &meta, &at}, func() error {
		ev := snapshot.Event{Type: snapshot.EventType(evType), Timestamp: at}
		var err error
		if ev.PerformedBy, err = decodeActor(performedBy); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(meta), &ev.Metadata); err != nil {
			return fmt.Errorf("%w: event metadata of %s: %w", snapshot.ErrCorruptSnapshot, sid, err)
		}
		s := &list[index[sid]]
		s.Events = append(s.Events, ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query snapshot events: %w", err)
	}

	for i := range list {
		if list[i].Entries == nil {
			list[i].Entries = []snapshot.Entry{}
		}
	}
	return list, nil
}

func scanSnapshot(row pgx.CollectableRow) (snapshot.Snapshot, error) {
	var (
		s                     snapshot.Snapshot
		meta                  string
		createdBy, restoredBy *string
	)
	if err := row.Scan(&s.ID, &s.Scope, &s.Label, &meta, &createdBy, &s.CreatedAt, &s.RestoredAt, &restoredBy); err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(meta), &s.Metadata); err != nil {
		return s, fmt.Errorf("%w: metadata of %s: %w", snapshot.ErrCorruptSnapshot, s.ID, err)
	}
	var err error
	if s.CreatedBy, err = decodeActor(createdBy); err != nil {
		return s, err
	}
	if s.RestoredBy, err = decodeActor(restoredBy); err != nil {
		return s, err
	}
	return s, nil
}

func queueEvent(batch *pgx.Batch, id string, ev snapshot.Event) error {
	by, err := encodeActor(ev.PerformedBy)
	if err != nil {
		return err
	}
	meta, err := encodeJSON(nonNilMap(ev.Metadata))
	if err != nil {
		return err
	}
	batch.Queue(insertSnapshotEvent, id, string(ev.Type), by, meta, ev.Timestamp)
	return nil
}

func encodeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(raw), nil
}

func encodeActor(a *snapshot.Actor) (*string, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := encodeJSON(a)
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

func decodeActor(raw *string) (*snapshot.Actor, error) {
	if raw == nil {
		return nil, nil
	}
	var a snapshot.Actor
	if err := json.Unmarshal([]byte(*raw), &a); err != nil {
		return nil, fmt.Errorf("%w: actor: %w", snapshot.ErrCorruptSnapshot, err)
	}
	return &a, nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
