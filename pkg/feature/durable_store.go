package feature

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// DurableConfig configures a DurableStore.
type DurableConfig struct {
	// RetryAttempts bounds how often a resolve is attempted when it races
	// another writer on the same record.
	RetryAttempts int `env:"FEATURE_DB_RETRY_ATTEMPTS" envDefault:"3"`
	// RetryInterval is the pause between attempts.
	RetryInterval time.Duration `env:"FEATURE_DB_RETRY_INTERVAL" envDefault:"10ms"`
	// RecordTTL sets ExpiresAt on stored records. Zero keeps them forever.
	RecordTTL time.Duration `env:"FEATURE_DB_RECORD_TTL" envDefault:"0"`
}

// DefaultDurableConfig returns the configuration used when none is loaded.
func DefaultDurableConfig() DurableConfig {
	return DurableConfig{RetryAttempts: 3, RetryInterval: 10 * time.Millisecond}
}

// DurableStore keeps feature values in a Table shared by many processes.
//
// Resolution is safe against concurrent writers: when an insert loses the
// race for a (name, scope) key the store re-reads the winning record instead
// of failing. After RetryAttempts lost races ErrConcurrencyConflict is returned.
type DurableStore struct {
	*registry
	table Table
	cfg   DurableConfig
	opts  options
	group singleflight.Group
}

var _ Store = (*DurableStore)(nil)

// NewDurableStore creates a store over table.
func NewDurableStore(table Table, cfg DurableConfig, opts ...Option) *DurableStore {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return &DurableStore{
		registry: newRegistry(),
		table:    table,
		cfg:      cfg,
		opts:     newOptions(opts),
	}
}

func (s *DurableStore) Define(name string, resolver Resolver) error {
	return s.define(name, resolver)
}

func (s *DurableStore) ListDefined() []string {
	return s.names()
}

func (s *DurableStore) ListStored(ctx context.Context) ([]string, error) {
	return s.table.Names(ctx, s.opts.now())
}

func (s *DurableStore) Lookup(ctx context.Context, name string, scope Scope) (Value, bool, error) {
	key := RecordKey{Name: name, Scope: scope.Key()}
	found, err := s.table.Find(ctx, []RecordKey{key})
	if err != nil {
		return Value{}, false, err
	}
	now := s.opts.now()
	for _, r := range found {
		if r.Key() == key && !r.Expired(now) {
			return r.Value, true, nil
		}
	}
	return Value{}, false, nil
}

func (s *DurableStore) Resolve(ctx context.Context, name string, scope Scope) (Value, error) {
	resolver, ok := s.lookup(name)
	if !ok {
		return s.opts.unknown(ctx, name, scope), nil
	}

	key := RecordKey{Name: name, Scope: scope.Key()}
	res, err, _ := s.group.Do(name+"\x00"+key.Scope, func() (any, error) {
		return retryConflicts(ctx, s, func() (Value, error) {
			return s.resolveOnce(ctx, key, scope, resolver)
		})
	})
	if err != nil {
		return Value{}, err
	}
	return res.(Value), nil
}

func (s *DurableStore) resolveOnce(ctx context.Context, key RecordKey, scope Scope, resolver Resolver) (Value, error) {
	found, err := s.table.Find(ctx, []RecordKey{key})
	if err != nil {
		return Value{}, backoff.Permanent(err)
	}

	now := s.opts.now()
	for _, r := range found {
		if r.Key() != key {
			continue
		}
		if !r.Expired(now) {
			return r.Value, nil
		}
		if err := s.table.Delete(ctx, []RecordKey{key}); err != nil {
			return Value{}, backoff.Permanent(err)
		}
	}

	v, err := resolver.Resolve(ctx, scope)
	if err != nil {
		return Value{}, backoff.Permanent(err)
	}
	if err := s.table.Insert(ctx, []Record{s.record(key, v, now)}); err != nil {
		return Value{}, conflictOrPermanent(err)
	}
	return v, nil
}

type batchItem struct {
	key      RecordKey
	scope    Scope
	resolver Resolver
}

// ResolveMany resolves all pairs with one lookup and one bulk insert.
// When the insert races another writer the whole batch is resolved again.
func (s *DurableStore) ResolveMany(ctx context.Context, req map[string][]Scope) (map[string][]Value, error) {
	out := make(map[string][]Value, len(req))
	var items []batchItem
	seen := make(map[RecordKey]struct{})
	defined := make(map[string]bool, len(req))

	for _, name := range slices.Sorted(maps.Keys(req)) {
		scopes := req[name]
		out[name] = make([]Value, len(scopes))
		resolver, ok := s.lookup(name)
		defined[name] = ok
		for i, scope := range scopes {
			if !ok {
				out[name][i] = s.opts.unknown(ctx, name, scope)
				continue
			}
			key := RecordKey{Name: name, Scope: scope.Key()}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			items = append(items, batchItem{key: key, scope: scope, resolver: resolver})
		}
	}
	if len(items) == 0 {
		return out, nil
	}

	values, err := retryConflicts(ctx, s, func() (map[RecordKey]Value, error) {
		return s.resolveBatch(ctx, items)
	})
	if err != nil {
		return nil, err
	}

	for name, scopes := range req {
		if !defined[name] {
			continue
		}
		for i, scope := range scopes {
			if v, ok := values[RecordKey{Name: name, Scope: scope.Key()}]; ok {
				out[name][i] = v
			}
		}
	}
	return out, nil
}

func (s *DurableStore) resolveBatch(ctx context.Context, items []batchItem) (map[RecordKey]Value, error) {
	keys := make([]RecordKey, len(items))
	for i, it := range items {
		keys[i] = it.key
	}

	found, err := s.table.Find(ctx, keys)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	now := s.opts.now()
	values := make(map[RecordKey]Value, len(items))
	var expired []RecordKey
	for _, r := range found {
		if r.Expired(now) {
			expired = append(expired, r.Key())
			continue
		}
		values[r.Key()] = r.Value
	}
	if len(expired) > 0 {
		if err := s.table.Delete(ctx, expired); err != nil {
			return nil, backoff.Permanent(err)
		}
	}

	var fresh []Record
	for _, it := range items {
		if _, ok := values[it.key]; ok {
			continue
		}
		v, err := it.resolver.Resolve(ctx, it.scope)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		values[it.key] = v
		fresh = append(fresh, s.record(it.key, v, now))
	}
	if len(fresh) > 0 {
		if err := s.table.Insert(ctx, fresh); err != nil {
			return nil, conflictOrPermanent(err)
		}
	}
	return values, nil
}

func (s *DurableStore) Set(ctx context.Context, name string, scope Scope, v Value) error {
	key := RecordKey{Name: name, Scope: scope.Key()}
	return s.table.Upsert(ctx, s.record(key, v, s.opts.now()))
}

func (s *DurableStore) SetForAllScopes(ctx context.Context, name string, v Value) error {
	if err := s.table.DeleteNames(ctx, []string{name}); err != nil {
		return err
	}
	return s.define(name, Static(v))
}

func (s *DurableStore) Delete(ctx context.Context, name string, scope Scope) error {
	return s.table.Delete(ctx, []RecordKey{{Name: name, Scope: scope.Key()}})
}

func (s *DurableStore) Purge(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	return s.table.DeleteNames(ctx, names)
}

func (s *DurableStore) PurgeAll(ctx context.Context) error {
	return s.table.DeleteAll(ctx)
}

func (s *DurableStore) FlushCache(ctx context.Context) error {
	return s.table.DeleteAll(ctx)
}

// EvictExpired deletes expired records and returns how many were removed.
func (s *DurableStore) EvictExpired(ctx context.Context) (int64, error) {
	n, err := s.table.DeleteExpired(ctx, s.opts.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.opts.log.InfoContext(ctx, "expired feature records evicted", logger.Count(n))
	}
	return n, nil
}

func (s *DurableStore) record(key RecordKey, v Value, now time.Time) Record {
	r := Record{Name: key.Name, Scope: key.Scope, Value: v}
	if s.cfg.RecordTTL > 0 {
		r.ExpiresAt = now.Add(s.cfg.RecordTTL)
	}
	return r
}

// conflictOrPermanent keeps unique violations retryable and stops on anything else.
func conflictOrPermanent(err error) error {
	if errors.Is(err, ErrUniqueViolation) {
		return err
	}
	return backoff.Permanent(err)
}

// retryConflicts runs op until it succeeds, fails permanently or loses
// the insert race RetryAttempts times.
func retryConflicts[T any](ctx context.Context, s *DurableStore, op func() (T, error)) (T, error) {
	v, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.cfg.RetryInterval)),
		backoff.WithMaxTries(uint(s.cfg.RetryAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.opts.log.DebugContext(ctx, "feature insert conflict, retrying",
				logger.Error(err),
				logger.Duration(next),
			)
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if err != nil && errors.Is(err, ErrUniqueViolation) {
		s.opts.log.WarnContext(ctx, "feature insert conflict persisted",
			logger.RetryCount(s.cfg.RetryAttempts),
			logger.Error(err),
		)
		var zero T
		return zero, errors.Join(ErrConcurrencyConflict, err)
	}
	return v, err
}
