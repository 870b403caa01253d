package feature

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// CacheConfig configures a CacheStore.
type CacheConfig struct {
	// Prefix is prepended to every cache key.
	Prefix string `env:"FEATURE_CACHE_PREFIX" envDefault:"features"`
	// TTL is the record lifetime in whole seconds. Empty keeps records forever.
	TTL string `env:"FEATURE_CACHE_TTL"`
}

// ParseTTL validates TTL. forever is true when no TTL is configured.
func (c CacheConfig) ParseTTL() (ttl time.Duration, forever bool, err error) {
	raw := strings.TrimSpace(c.TTL)
	if raw == "" {
		return 0, true, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q is not a number of seconds", ErrInvalidTTL, c.TTL)
	}
	if secs < 0 {
		return 0, false, fmt.Errorf("%w: %d is negative", ErrInvalidTTL, secs)
	}
	return time.Duration(secs) * time.Second, false, nil
}

const indexSegment = "__index"

// CacheStore keeps feature values in an external Cache.
//
// Records live under "{prefix}:{name}:{scope key}". Because caches cannot be
// enumerated portably, the store keeps an index of materialized scope keys
// per feature and a set of feature names; both index records never expire.
// The index is updated read-modify-write, so a single writer per feature is
// assumed across processes.
type CacheStore struct {
	*registry
	cache Cache
	cfg   CacheConfig
	opts  options

	mu    sync.Mutex // serializes index updates in this process
	group singleflight.Group
}

var _ Store = (*CacheStore)(nil)

// NewCacheStore creates a store over cache. The TTL is validated on writes.
func NewCacheStore(cache Cache, cfg CacheConfig, opts ...Option) *CacheStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "features"
	}
	return &CacheStore{
		registry: newRegistry(),
		cache:    cache,
		cfg:      cfg,
		opts:     newOptions(opts),
	}
}

func (s *CacheStore) recordKey(name, scopeKey string) string {
	return s.cfg.Prefix + ":" + name + ":" + scopeKey
}

func (s *CacheStore) scopeIndexKey(name string) string {
	return s.cfg.Prefix + ":" + indexSegment + ":" + name
}

func (s *CacheStore) nameIndexKey() string {
	return s.cfg.Prefix + ":" + indexSegment
}

func (s *CacheStore) Define(name string, resolver Resolver) error {
	return s.define(name, resolver)
}

func (s *CacheStore) ListDefined() []string {
	return s.names()
}

func (s *CacheStore) ListStored(ctx context.Context) ([]string, error) {
	names, err := s.readSet(ctx, s.nameIndexKey())
	if err != nil {
		return nil, err
	}

	stored := make([]string, 0, len(names))
	for _, name := range names {
		scopes, err := s.readSet(ctx, s.scopeIndexKey(name))
		if err != nil {
			return nil, err
		}
		for _, scopeKey := range scopes {
			ok, err := s.cache.Has(ctx, s.recordKey(name, scopeKey))
			if err != nil {
				return nil, err
			}
			if ok {
				stored = append(stored, name)
				break
			}
		}
	}
	slices.Sort(stored)
	return stored, nil
}

func (s *CacheStore) Lookup(ctx context.Context, name string, scope Scope) (Value, bool, error) {
	raw, ok, err := s.cache.Get(ctx, s.recordKey(name, scope.Key()))
	if err != nil || !ok {
		return Value{}, false, err
	}
	var v Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

func (s *CacheStore) Resolve(ctx context.Context, name string, scope Scope) (Value, error) {
	resolver, ok := s.lookup(name)
	if !ok {
		return s.opts.unknown(ctx, name, scope), nil
	}

	v, ok, err := s.Lookup(ctx, name, scope)
	if err != nil {
		return Value{}, err
	}
	if ok {
		return v, nil
	}

	key := s.recordKey(name, scope.Key())
	res, err, _ := s.group.Do(key, func() (any, error) {
		v, err := resolver.Resolve(ctx, scope)
		if err != nil {
			return nil, err
		}
		if err := s.write(ctx, name, scope.Key(), v); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return Value{}, err
	}
	return res.(Value), nil
}

func (s *CacheStore) ResolveMany(ctx context.Context, req map[string][]Scope) (map[string][]Value, error) {
	return resolveEach(ctx, req, s.Resolve)
}

func (s *CacheStore) Set(ctx context.Context, name string, scope Scope, v Value) error {
	return s.write(ctx, name, scope.Key(), v)
}

func (s *CacheStore) SetForAllScopes(ctx context.Context, name string, v Value) error {
	if err := s.purge(ctx, []string{name}); err != nil {
		return err
	}
	return s.define(name, Static(v))
}

func (s *CacheStore) Delete(ctx context.Context, name string, scope Scope) error {
	if err := s.cache.Forget(ctx, s.recordKey(name, scope.Key())); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scopes, err := s.readSet(ctx, s.scopeIndexKey(name))
	if err != nil {
		return err
	}
	i := slices.Index(scopes, scope.Key())
	if i < 0 {
		return nil
	}
	scopes = slices.Delete(scopes, i, i+1)
	if len(scopes) > 0 {
		return s.writeSet(ctx, s.scopeIndexKey(name), scopes)
	}
	if err := s.cache.Forget(ctx, s.scopeIndexKey(name)); err != nil {
		return err
	}
	return s.removeName(ctx, name)
}

func (s *CacheStore) Purge(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	return s.purge(ctx, names)
}

func (s *CacheStore) PurgeAll(ctx context.Context) error {
	names, err := s.readSet(ctx, s.nameIndexKey())
	if err != nil {
		return err
	}
	if err := s.purge(ctx, names); err != nil {
		return err
	}
	return s.cache.Forget(ctx, s.nameIndexKey())
}

func (s *CacheStore) FlushCache(ctx context.Context) error {
	return s.PurgeAll(ctx)
}

func (s *CacheStore) purge(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		scopes, err := s.readSet(ctx, s.scopeIndexKey(name))
		if err != nil {
			return err
		}
		for _, scopeKey := range scopes {
			if err := s.cache.Forget(ctx, s.recordKey(name, scopeKey)); err != nil {
				return err
			}
		}
		if err := s.cache.Forget(ctx, s.scopeIndexKey(name)); err != nil {
			return err
		}
		if err := s.removeName(ctx, name); err != nil {
			return err
		}
		s.opts.log.DebugContext(ctx, "feature purged",
			logger.Feature(name),
			logger.Count(int64(len(scopes))),
		)
	}
	return nil
}

func (s *CacheStore) write(ctx context.Context, name, scopeKey string, v Value) error {
	ttl, forever, err := s.cfg.ParseTTL()
	if err != nil {
		return err
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return err
	}

	key := s.recordKey(name, scopeKey)
	if forever {
		err = s.cache.Forever(ctx, key, raw)
	} else {
		err = s.cache.Put(ctx, key, raw, ttl)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.addToSet(ctx, s.scopeIndexKey(name), scopeKey); err != nil {
		return err
	}
	return s.addToSet(ctx, s.nameIndexKey(), name)
}

func (s *CacheStore) removeName(ctx context.Context, name string) error {
	names, err := s.readSet(ctx, s.nameIndexKey())
	if err != nil {
		return err
	}
	i := slices.Index(names, name)
	if i < 0 {
		return nil
	}
	return s.writeSet(ctx, s.nameIndexKey(), slices.Delete(names, i, i+1))
}

func (s *CacheStore) addToSet(ctx context.Context, key, member string) error {
	set, err := s.readSet(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(set, member) {
		return nil
	}
	return s.writeSet(ctx, key, append(set, member))
}

func (s *CacheStore) readSet(ctx context.Context, key string) ([]string, error) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var set []string
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, errors.Join(fmt.Errorf("corrupt feature index %q", key), err)
	}
	return set, nil
}

func (s *CacheStore) writeSet(ctx context.Context, key string, set []string) error {
	slices.Sort(set)
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return s.cache.Forever(ctx, key, raw)
}
