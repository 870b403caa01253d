package feature

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryGroupStore is an in-process GroupStore.
type MemoryGroupStore struct {
	mu     sync.RWMutex
	groups map[string]Group
	now    func() time.Time
}

var _ GroupStore = (*MemoryGroupStore)(nil)

// NewMemoryGroupStore returns an empty group store.
func NewMemoryGroupStore() *MemoryGroupStore {
	return &MemoryGroupStore{groups: make(map[string]Group), now: time.Now}
}

func (s *MemoryGroupStore) Define(_ context.Context, name string, features []string, metadata map[string]any) (Group, error) {
	if name == "" {
		return Group{}, ErrInvalidDefinition
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	g, ok := s.groups[name]
	if !ok {
		g = Group{Name: name, CreatedAt: now}
	}
	g.Features = NormalizeFeatures(features)
	g.Metadata = maps.Clone(metadata)
	g.UpdatedAt = now
	s.groups[name] = g
	return cloneGroup(g), nil
}

func (s *MemoryGroupStore) Get(_ context.Context, name string) (Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[name]
	if !ok {
		return Group{}, ErrGroupNotFound
	}
	return cloneGroup(g), nil
}

func (s *MemoryGroupStore) List(_ context.Context) ([]Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, cloneGroup(g))
	}
	slices.SortFunc(out, func(a, b Group) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *MemoryGroupStore) Update(_ context.Context, name string, features []string) (Group, error) {
	return s.mutate(name, func(Group) []string { return NormalizeFeatures(features) })
}

func (s *MemoryGroupStore) AddFeatures(_ context.Context, name string, features ...string) (Group, error) {
	return s.mutate(name, func(g Group) []string { return g.WithFeatures(features...) })
}

func (s *MemoryGroupStore) RemoveFeatures(_ context.Context, name string, features ...string) (Group, error) {
	return s.mutate(name, func(g Group) []string { return g.WithoutFeatures(features...) })
}

func (s *MemoryGroupStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.groups, name)
	s.mu.Unlock()
	return nil
}

func (s *MemoryGroupStore) mutate(name string, features func(Group) []string) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	if !ok {
		return Group{}, ErrGroupNotFound
	}
	g.Features = features(g)
	g.UpdatedAt = s.now()
	s.groups[name] = g
	return cloneGroup(g), nil
}

func cloneGroup(g Group) Group {
	g.Features = slices.Clone(g.Features)
	g.Metadata = maps.Clone(g.Metadata)
	return g
}
