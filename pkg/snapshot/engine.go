package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// Engine captures and replays the feature values of a scope.
type Engine struct {
	store feature.Store
	repo  Repository
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides snapshot id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine returns an engine reading and writing feature values through store.
func NewEngine(store feature.Store, repo Repository, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		repo:  repo,
		log:   logger.Discard(),
		now:   time.Now,
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateOption sets optional snapshot attributes.
type CreateOption func(*Snapshot)

// WithLabel sets a human readable label.
func WithLabel(label string) CreateOption {
	return func(s *Snapshot) { s.Label = label }
}

// WithCreatedBy records the actor creating the snapshot.
func WithCreatedBy(a Actor) CreateOption {
	return func(s *Snapshot) { s.CreatedBy = &a }
}

// WithMetadata attaches free-form metadata.
func WithMetadata(m map[string]any) CreateOption {
	return func(s *Snapshot) { s.Metadata = maps.Clone(m) }
}

// Create stores a snapshot of features for scope and returns its id.
func (e *Engine) Create(ctx context.Context, scope feature.Scope, features map[string]feature.Value, opts ...CreateOption) (string, error) {
	now := e.now()
	s := Snapshot{
		ID:        e.newID(),
		Scope:     scope.Key(),
		Entries:   newEntries(features),
		CreatedAt: now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.Events = []Event{{
		Type:        EventCreated,
		PerformedBy: cloneActor(s.CreatedBy),
		Metadata:    map[string]any{MetaFeatureCount: len(s.Entries)},
		Timestamp:   now,
	}}

	if err := e.repo.Save(ctx, s); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	e.log.InfoContext(ctx, "snapshot created",
		logger.SnapshotID(s.ID),
		logger.Scope(s.Scope),
		logger.Count(int64(len(s.Entries))),
	)
	return s.ID, nil
}

// Capture snapshots the current values of scope: every defined feature as
// the scope resolves it, plus values stored for the scope without a resolver.
// Reserved "__" names are skipped.
func (e *Engine) Capture(ctx context.Context, scope feature.Scope, opts ...CreateOption) (string, error) {
	stored, err := e.store.ListStored(ctx)
	if err != nil {
		return "", err
	}
	defined := e.store.ListDefined()
	names := append(slices.Clone(defined), stored...)
	slices.Sort(names)
	names = slices.Compact(names)

	features := make(map[string]feature.Value, len(names))
	for _, name := range names {
		if feature.IsInternal(name) {
			continue
		}
		v, ok, err := e.store.Lookup(ctx, name, scope)
		if err != nil {
			return "", err
		}
		if !ok {
			if !slices.Contains(defined, name) {
				continue
			}
			if v, err = e.store.Resolve(ctx, name, scope); err != nil {
				return "", err
			}
		}
		features[name] = v
	}
	return e.Create(ctx, scope, features, opts...)
}

// Restore replaces the scope's feature values with the snapshot: stored
// non-reserved features are removed for the scope, then every non-reserved
// entry is written with its captured value. Reserved entries are never
// written back. Missing snapshots and snapshots of another scope are ignored.
func (e *Engine) Restore(ctx context.Context, id string, scope feature.Scope, by *Actor) error {
	s, ok, err := e.load(ctx, id, scope)
	if err != nil || !ok {
		return err
	}

	stored, err := e.store.ListStored(ctx)
	if err != nil {
		return err
	}
	for _, name := range stored {
		if feature.IsInternal(name) {
			continue
		}
		if err := e.store.Delete(ctx, name, scope); err != nil {
			return fmt.Errorf("clear %q: %w", name, err)
		}
	}

	entries := make([]Entry, 0, len(s.Entries))
	names := make([]string, 0, len(s.Entries))
	for _, entry := range s.Entries {
		if feature.IsInternal(entry.Feature) {
			continue
		}
		entries = append(entries, entry)
		names = append(names, entry.Feature)
	}
	if err := e.apply(ctx, scope, entries); err != nil {
		return err
	}

	if err := e.markRestored(ctx, s, by, EventRestored, map[string]any{MetaFeaturesRestored: names}); err != nil {
		return err
	}
	e.log.InfoContext(ctx, "snapshot restored",
		logger.SnapshotID(s.ID),
		logger.Scope(s.Scope),
		logger.Features(names),
	)
	return nil
}

// RestorePartial writes back only the entries named in names. Names not in
// the snapshot are skipped. Other features of the scope are left untouched.
func (e *Engine) RestorePartial(ctx context.Context, id string, scope feature.Scope, names []string, by *Actor) error {
	s, ok, err := e.load(ctx, id, scope)
	if err != nil || !ok {
		return err
	}

	var (
		entries  []Entry
		restored []string
	)
	for _, entry := range s.Entries {
		if slices.Contains(names, entry.Feature) && !feature.IsInternal(entry.Feature) {
			entries = append(entries, entry)
			restored = append(restored, entry.Feature)
		}
	}
	if err := e.apply(ctx, scope, entries); err != nil {
		return err
	}

	if restored == nil {
		restored = []string{}
	}
	meta := map[string]any{
		MetaFeaturesRestored: restored,
		MetaTotalFeatures:    len(restored),
	}
	if err := e.markRestored(ctx, s, by, EventPartialRestore, meta); err != nil {
		return err
	}
	e.log.InfoContext(ctx, "snapshot partially restored",
		logger.SnapshotID(s.ID),
		logger.Scope(s.Scope),
		logger.Features(restored),
	)
	return nil
}

// Get returns the snapshot with id.
func (e *Engine) Get(ctx context.Context, id string) (Snapshot, bool, error) {
	return e.repo.Get(ctx, id)
}

// List returns the snapshots of scope, newest first.
func (e *Engine) List(ctx context.Context, scope feature.Scope) ([]Snapshot, error) {
	return e.repo.List(ctx, scope.Key())
}

// Delete removes a snapshot. Missing snapshots are ignored.
// Repositories drop the deleted event together with the snapshot's
// history, so the engine logs it.
func (e *Engine) Delete(ctx context.Context, id string, by *Actor) error {
	ev := Event{Type: EventDeleted, PerformedBy: cloneActor(by), Metadata: map[string]any{}, Timestamp: e.now()}
	deleted, err := e.repo.Delete(ctx, id, ev)
	if err != nil {
		return err
	}
	if deleted {
		attrs := []any{logger.SnapshotID(id), logger.Event(string(ev.Type))}
		if by != nil {
			attrs = append(attrs, logger.Actor(by.Type, by.ID))
		}
		e.log.InfoContext(ctx, "snapshot deleted", attrs...)
	}
	return nil
}

// ClearAll removes every snapshot of scope and returns how many were removed.
func (e *Engine) ClearAll(ctx context.Context, scope feature.Scope) (int, error) {
	n, err := e.repo.DeleteScope(ctx, scope.Key())
	if err != nil {
		return 0, err
	}
	e.log.InfoContext(ctx, "snapshots cleared", logger.Scope(scope.Key()), logger.Count(int64(n)))
	return n, nil
}

// EventHistory returns the audit trail of a snapshot in append order.
func (e *Engine) EventHistory(ctx context.Context, id string) ([]Event, error) {
	s, ok, err := e.repo.Get(ctx, id)
	if err != nil || !ok {
		return []Event{}, err
	}
	return s.Events, nil
}

// Prune removes snapshots older than the given number of days and returns
// how many were removed. Repositories without durable storage report zero.
func (e *Engine) Prune(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := e.now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
	n, err := e.repo.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.log.InfoContext(ctx, "snapshots pruned", logger.Count(int64(n)))
	}
	return n, nil
}

func (e *Engine) load(ctx context.Context, id string, scope feature.Scope) (Snapshot, bool, error) {
	s, ok, err := e.repo.Get(ctx, id)
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	if s.Scope != scope.Key() {
		e.log.DebugContext(ctx, "snapshot scope mismatch",
			logger.SnapshotID(id),
			logger.Scope(scope.Key()),
		)
		return Snapshot{}, false, nil
	}
	return s, true, nil
}

// apply writes entries with their exact captured values, false and null included.
func (e *Engine) apply(ctx context.Context, scope feature.Scope, entries []Entry) error {
	for _, entry := range entries {
		if err := e.store.Set(ctx, entry.Feature, scope, entry.Value); err != nil {
			return fmt.Errorf("restore %q: %w", entry.Feature, err)
		}
	}
	return nil
}

func (e *Engine) markRestored(ctx context.Context, s Snapshot, by *Actor, typ EventType, meta map[string]any) error {
	now := e.now()
	ev := Event{Type: typ, PerformedBy: cloneActor(by), Metadata: meta, Timestamp: now}
	if err := e.repo.MarkRestored(ctx, s.ID, now, cloneActor(by), ev); err != nil {
		return fmt.Errorf("record restore: %w", err)
	}
	return nil
}
