package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// Store decorates a feature.Store with operation counters and latency
// histograms labelled by store name and operation.
type Store struct {
	next       feature.Store
	name       string
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ feature.Store = (*Store)(nil)

// NewStore instruments next and registers its collectors on reg.
// It panics if reg holds a different collector under the same name.
func NewStore(next feature.Store, reg prometheus.Registerer, opts ...Option) *Store {
	o := newOptions(opts)
	return &Store{
		next: next,
		name: o.store,
		operations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Feature store operations by store, operation and result.",
		}, []string{"store", "operation", "result"})),
		duration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Feature store operation latency in seconds.",
			Buckets:   o.buckets,
		}, []string{"store", "operation"})),
	}
}

// Unwrap returns the decorated store.
func (s *Store) Unwrap() feature.Store {
	return s.next
}

func (s *Store) observe(op string, start time.Time, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	s.operations.WithLabelValues(s.name, op, result).Inc()
	s.duration.WithLabelValues(s.name, op).Observe(time.Since(start).Seconds())
}

func (s *Store) Define(name string, resolver feature.Resolver) (err error) {
	defer func(start time.Time) { s.observe("define", start, err) }(time.Now())
	return s.next.Define(name, resolver)
}

func (s *Store) ListDefined() []string {
	return s.next.ListDefined()
}

func (s *Store) ListStored(ctx context.Context) (names []string, err error) {
	defer func(start time.Time) { s.observe("list_stored", start, err) }(time.Now())
	return s.next.ListStored(ctx)
}

func (s *Store) Lookup(ctx context.Context, name string, scope feature.Scope) (v feature.Value, ok bool, err error) {
	defer func(start time.Time) { s.observe("lookup", start, err) }(time.Now())
	return s.next.Lookup(ctx, name, scope)
}

func (s *Store) Resolve(ctx context.Context, name string, scope feature.Scope) (v feature.Value, err error) {
	defer func(start time.Time) { s.observe("resolve", start, err) }(time.Now())
	return s.next.Resolve(ctx, name, scope)
}

func (s *Store) ResolveMany(ctx context.Context, req map[string][]feature.Scope) (out map[string][]feature.Value, err error) {
	defer func(start time.Time) { s.observe("resolve_many", start, err) }(time.Now())
	return s.next.ResolveMany(ctx, req)
}

func (s *Store) Set(ctx context.Context, name string, scope feature.Scope, v feature.Value) (err error) {
	defer func(start time.Time) { s.observe("set", start, err) }(time.Now())
	return s.next.Set(ctx, name, scope, v)
}

func (s *Store) SetForAllScopes(ctx context.Context, name string, v feature.Value) (err error) {
	defer func(start time.Time) { s.observe("set_for_all_scopes", start, err) }(time.Now())
	return s.next.SetForAllScopes(ctx, name, v)
}

func (s *Store) Delete(ctx context.Context, name string, scope feature.Scope) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, name, scope)
}

func (s *Store) Purge(ctx context.Context, names ...string) (err error) {
	defer func(start time.Time) { s.observe("purge", start, err) }(time.Now())
	return s.next.Purge(ctx, names...)
}

func (s *Store) PurgeAll(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("purge_all", start, err) }(time.Now())
	return s.next.PurgeAll(ctx)
}

func (s *Store) FlushCache(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("flush_cache", start, err) }(time.Now())
	return s.next.FlushCache(ctx)
}
