package feature

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// InternalPrefix marks reserved feature names. Snapshot restores never touch them.
const InternalPrefix = "__"

// IsInternal reports whether name is in the reserved namespace.
func IsInternal(name string) bool {
	return strings.HasPrefix(name, InternalPrefix)
}

// Store resolves and persists feature values per scope.
//
// Resolving an undefined feature emits EventUnknownFeatureResolved and
// returns UnknownValue without storing anything. Resolver errors are
// returned as-is and nothing is stored.
type Store interface {
	// Define registers the resolver for name, replacing any previous one.
	// Already materialized values are kept.
	Define(name string, resolver Resolver) error
	// ListDefined returns the names with a resolver, sorted.
	ListDefined() []string
	// ListStored returns the names with at least one materialized value, sorted.
	ListStored(ctx context.Context) ([]string, error)
	// Lookup returns the materialized value for (name, scope) without resolving.
	Lookup(ctx context.Context, name string, scope Scope) (Value, bool, error)
	// Resolve returns the stored value or computes and stores it.
	Resolve(ctx context.Context, name string, scope Scope) (Value, error)
	// ResolveMany resolves every (name, scope) pair. Values are returned in
	// the order of the input scopes for each name.
	ResolveMany(ctx context.Context, req map[string][]Scope) (map[string][]Value, error)
	// Set writes v for (name, scope), bypassing the resolver.
	Set(ctx context.Context, name string, scope Scope, v Value) error
	// SetForAllScopes redefines name as the constant v and drops its stored values.
	SetForAllScopes(ctx context.Context, name string, v Value) error
	// Delete removes the value for (name, scope). Missing values are ignored.
	Delete(ctx context.Context, name string, scope Scope) error
	// Purge removes every stored value of the given names. No names is a no-op.
	Purge(ctx context.Context, names ...string) error
	// PurgeAll removes every stored value.
	PurgeAll(ctx context.Context) error
	// FlushCache drops materialized values and keeps resolvers.
	FlushCache(ctx context.Context) error
}

// Active resolves name for scope and reports whether it is on.
func Active(ctx context.Context, s Store, name string, scope Scope) (bool, error) {
	v, err := s.Resolve(ctx, name, scope)
	if err != nil {
		return false, err
	}
	return v.IsActive(), nil
}

// Option configures a store.
type Option func(*options)

type options struct {
	log  *slog.Logger
	sink EventSink
	now  func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		log:  logger.Discard(),
		sink: NopSink{},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the store logger. The default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithEventSink sets the sink for store events.
func WithEventSink(sink EventSink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithClock overrides the time source. Used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// registry holds feature resolvers.
type registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

func newRegistry() *registry {
	return &registry{resolvers: make(map[string]Resolver)}
}

func (r *registry) define(name string, resolver Resolver) error {
	if name == "" {
		return ErrInvalidDefinition
	}
	if resolver == nil {
		return ErrInvalidResolver
	}
	r.mu.Lock()
	r.resolvers[name] = resolver
	r.mu.Unlock()
	return nil
}

func (r *registry) lookup(name string) (Resolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resolvers[name]
	return res, ok
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.resolvers))
}

// unknown reports an undefined feature and returns the sentinel.
func (o options) unknown(ctx context.Context, name string, scope Scope) Value {
	o.sink.Emit(ctx, unknownFeatureEvent(name, scope))
	o.log.DebugContext(ctx, "unknown feature resolved",
		logger.Feature(name),
		logger.Scope(scope.Key()),
	)
	return UnknownValue
}

// resolveEach implements ResolveMany on top of a single-pair resolve.
func resolveEach(ctx context.Context, req map[string][]Scope,
	resolve func(context.Context, string, Scope) (Value, error),
) (map[string][]Value, error) {
	out := make(map[string][]Value, len(req))
	for _, name := range slices.Sorted(maps.Keys(req)) {
		scopes := req[name]
		values := make([]Value, len(scopes))
		for i, scope := range scopes {
			v, err := resolve(ctx, name, scope)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		out[name] = values
	}
	return out, nil
}
