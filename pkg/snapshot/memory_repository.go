package snapshot

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepository keeps snapshots in process memory. Snapshots live as long
// as the process, so Prune always reports zero.
type MemoryRepository struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{snapshots: make(map[string]Snapshot)}
}

func (r *MemoryRepository) Save(_ context.Context, s Snapshot) error {
	r.mu.Lock()
	r.snapshots[s.ID] = s.Clone()
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[id]
	if !ok {
		return Snapshot{}, false, nil
	}
	return s.Clone(), true, nil
}

func (r *MemoryRepository) List(_ context.Context, scope string) ([]Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Snapshot{}
	for _, s := range r.snapshots {
		if s.Scope == scope {
			out = append(out, s.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryRepository) MarkRestored(_ context.Context, id string, at time.Time, by *Actor, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snapshots[id]
	if !ok {
		return nil
	}
	s.RestoredAt = &at
	s.RestoredBy = cloneActor(by)
	s.Events = append(slices.Clip(s.Events), event)
	r.snapshots[id] = s
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string, _ Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.snapshots[id]; !ok {
		return false, nil
	}
	delete(r.snapshots, id)
	return true, nil
}

func (r *MemoryRepository) DeleteScope(_ context.Context, scope string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.snapshots {
		if s.Scope == scope {
			delete(r.snapshots, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Prune(context.Context, time.Time) (int, error) {
	return 0, nil
}

// sortNewestFirst orders by creation time, then id, descending.
func sortNewestFirst(list []Snapshot) {
	slices.SortFunc(list, func(a, b Snapshot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
}
