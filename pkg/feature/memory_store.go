package feature

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore keeps feature values in process memory.
//
// Map access is guarded by a mutex, but Resolve does not hold the lock while
// the resolver runs: two concurrent first resolves of the same pair may both
// call the resolver and the last write wins. Callers needing stronger
// guarantees must serialize writers per key themselves.
type MemoryStore struct {
	*registry
	opts options

	mu      sync.RWMutex
	records map[string]map[string]Value // name -> scope key -> value
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		registry: newRegistry(),
		opts:     newOptions(opts),
		records:  make(map[string]map[string]Value),
	}
}

func (s *MemoryStore) Define(name string, resolver Resolver) error {
	return s.define(name, resolver)
}

func (s *MemoryStore) ListDefined() []string {
	return s.names()
}

func (s *MemoryStore) ListStored(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name, byScope := range s.records {
		if len(byScope) > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *MemoryStore) Lookup(_ context.Context, name string, scope Scope) (Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[name][scope.Key()]
	return v, ok, nil
}

func (s *MemoryStore) Resolve(ctx context.Context, name string, scope Scope) (Value, error) {
	resolver, ok := s.lookup(name)
	if !ok {
		return s.opts.unknown(ctx, name, scope), nil
	}

	if v, ok, _ := s.Lookup(ctx, name, scope); ok {
		return v, nil
	}

	v, err := resolver.Resolve(ctx, scope)
	if err != nil {
		return Value{}, err
	}
	s.put(name, scope.Key(), v)
	return v, nil
}

func (s *MemoryStore) ResolveMany(ctx context.Context, req map[string][]Scope) (map[string][]Value, error) {
	return resolveEach(ctx, req, s.Resolve)
}

func (s *MemoryStore) Set(_ context.Context, name string, scope Scope, v Value) error {
	s.put(name, scope.Key(), v)
	return nil
}

func (s *MemoryStore) SetForAllScopes(_ context.Context, name string, v Value) error {
	s.mu.Lock()
	delete(s.records, name)
	s.mu.Unlock()
	return s.define(name, Static(v))
}

func (s *MemoryStore) Delete(_ context.Context, name string, scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byScope, ok := s.records[name]; ok {
		delete(byScope, scope.Key())
		if len(byScope) == 0 {
			delete(s.records, name)
		}
	}
	return nil
}

func (s *MemoryStore) Purge(_ context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		delete(s.records, name)
	}
	return nil
}

func (s *MemoryStore) PurgeAll(_ context.Context) error {
	s.mu.Lock()
	clear(s.records)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) FlushCache(ctx context.Context) error {
	return s.PurgeAll(ctx)
}

// Values returns a copy of the values stored for name, keyed by scope key.
func (s *MemoryStore) Values(name string) map[string]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.records[name])
}

func (s *MemoryStore) put(name, key string, v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byScope, ok := s.records[name]
	if !ok {
		byScope = make(map[string]Value)
		s.records[name] = byScope
	}
	byScope[key] = v
}
