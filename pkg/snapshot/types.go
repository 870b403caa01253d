package snapshot

import (
	"maps"
	"slices"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// EventType names an entry in a snapshot's audit trail.
type EventType string

const (
	EventCreated        EventType = "created"
	EventRestored       EventType = "restored"
	EventPartialRestore EventType = "partial_restore"
	EventDeleted        EventType = "deleted"
)

// Metadata keys written by the engine.
const (
	MetaFeatureCount     = "feature_count"
	MetaFeaturesRestored = "features_restored"
	MetaTotalFeatures    = "total_features"
)

// Actor identifies who performed an action.
type Actor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Entry is one captured feature value.
type Entry struct {
	Feature  string        `json:"feature"`
	Value    feature.Value `json:"value"`
	IsActive bool          `json:"is_active"`
}

// Event is an append-only audit record.
type Event struct {
	Type        EventType      `json:"type"`
	PerformedBy *Actor         `json:"performed_by,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Snapshot is an immutable capture of a scope's feature values.
// Only the audit fields (Events, RestoredAt, RestoredBy) change after creation.
type Snapshot struct {
	ID         string         `json:"id"`
	Scope      string         `json:"scope"` // feature.Scope.Key()
	Label      string         `json:"label,omitempty"`
	Entries    []Entry        `json:"entries"` // ordered by feature name
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedBy  *Actor         `json:"created_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RestoredAt *time.Time     `json:"restored_at,omitempty"`
	RestoredBy *Actor         `json:"restored_by,omitempty"`
	Events     []Event        `json:"events,omitempty"`
}

// Entry returns the entry for name.
func (s Snapshot) Entry(name string) (Entry, bool) {
	i, ok := slices.BinarySearchFunc(s.Entries, name, func(e Entry, name string) int {
		switch {
		case e.Feature < name:
			return -1
		case e.Feature > name:
			return 1
		}
		return 0
	})
	if !ok {
		return Entry{}, false
	}
	return s.Entries[i], true
}

// Features returns the captured values keyed by feature name.
func (s Snapshot) Features() map[string]feature.Value {
	out := make(map[string]feature.Value, len(s.Entries))
	for _, e := range s.Entries {
		out[e.Feature] = e.Value
	}
	return out
}

// Names returns the captured feature names in entry order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		names[i] = e.Feature
	}
	return names
}

// Clone returns a deep copy of s. Values are immutable and shared.
func (s Snapshot) Clone() Snapshot {
	s.Entries = slices.Clone(s.Entries)
	s.Metadata = maps.Clone(s.Metadata)
	s.CreatedBy = cloneActor(s.CreatedBy)
	s.RestoredBy = cloneActor(s.RestoredBy)
	if s.RestoredAt != nil {
		t := *s.RestoredAt
		s.RestoredAt = &t
	}
	events := make([]Event, len(s.Events))
	for i, e := range s.Events {
		e.PerformedBy = cloneActor(e.PerformedBy)
		e.Metadata = maps.Clone(e.Metadata)
		events[i] = e
	}
	s.Events = events
	return s
}

func cloneActor(a *Actor) *Actor {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func newEntries(features map[string]feature.Value) []Entry {
	entries := make([]Entry, 0, len(features))
	for _, name := range slices.Sorted(maps.Keys(features)) {
		v := features[name]
		entries = append(entries, Entry{Feature: name, Value: v, IsActive: v.IsActive()})
	}
	return entries
}
