package feature

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Decision is the answer of an authorization decision point.
type Decision uint8

const (
	// DecisionAbstain means the decider has no opinion on the feature.
	DecisionAbstain Decision = iota
	DecisionAllow
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "abstain"
	}
}

// Decider decides whether a scope may use a feature.
type Decider interface {
	Decide(ctx context.Context, scope Scope, feature string) (Decision, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, scope Scope, feature string) (Decision, error)

// Decide calls f(ctx, scope, feature).
func (f DeciderFunc) Decide(ctx context.Context, scope Scope, feature string) (Decision, error) {
	return f(ctx, scope, feature)
}

// AuthorizationStore delegates every resolution to a Decider and keeps no
// values of its own. All mutations fail with ErrUnsupportedOperation.
type AuthorizationStore struct {
	decider Decider
	opts    options

	mu    sync.RWMutex
	names map[string]struct{}
}

var _ Store = (*AuthorizationStore)(nil)

// NewAuthorizationStore creates a read-only store backed by decider.
func NewAuthorizationStore(decider Decider, opts ...Option) *AuthorizationStore {
	return &AuthorizationStore{
		decider: decider,
		opts:    newOptions(opts),
		names:   make(map[string]struct{}),
	}
}

// Define records name as known. The resolver is ignored.
func (s *AuthorizationStore) Define(name string, _ Resolver) error {
	if name == "" {
		return ErrInvalidDefinition
	}
	s.mu.Lock()
	s.names[name] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *AuthorizationStore) ListDefined() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.names))
}

func (s *AuthorizationStore) ListStored(context.Context) ([]string, error) {
	return []string{}, nil
}

func (s *AuthorizationStore) Lookup(context.Context, string, Scope) (Value, bool, error) {
	return Value{}, false, nil
}

// Resolve maps allow to true and deny to false. An abstaining decider is
// treated as an unknown feature.
func (s *AuthorizationStore) Resolve(ctx context.Context, name string, scope Scope) (Value, error) {
	d, err := s.decider.Decide(ctx, scope, name)
	if err != nil {
		return Value{}, err
	}
	switch d {
	case DecisionAllow:
		return Bool(true), nil
	case DecisionDeny:
		return Bool(false), nil
	default:
		return s.opts.unknown(ctx, name, scope), nil
	}
}

func (s *AuthorizationStore) ResolveMany(ctx context.Context, req map[string][]Scope) (map[string][]Value, error) {
	return resolveEach(ctx, req, s.Resolve)
}

func (s *AuthorizationStore) Set(context.Context, string, Scope, Value) error {
	return unsupported("set")
}

func (s *AuthorizationStore) SetForAllScopes(context.Context, string, Value) error {
	return unsupported("set for all scopes")
}

func (s *AuthorizationStore) Delete(context.Context, string, Scope) error {
	return unsupported("delete")
}

func (s *AuthorizationStore) Purge(context.Context, ...string) error {
	return unsupported("purge")
}

func (s *AuthorizationStore) PurgeAll(context.Context) error {
	return unsupported("purge")
}

// FlushCache is a no-op: there is nothing cached.
func (s *AuthorizationStore) FlushCache(context.Context) error {
	return nil
}

func unsupported(op string) error {
	return fmt.Errorf("%w: %s on authorization store", ErrUnsupportedOperation, op)
}
