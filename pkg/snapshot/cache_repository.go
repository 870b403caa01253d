package snapshot

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// CacheConfig configures a CacheRepository.
type CacheConfig struct {
	Prefix string `env:"FEATURE_SNAPSHOT_PREFIX" envDefault:"feature_snapshots"`
	// TTL bounds snapshot lifetime. Zero keeps snapshots until deleted.
	TTL time.Duration `env:"FEATURE_SNAPSHOT_TTL" envDefault:"0"`
}

// CacheRepository stores snapshots as JSON documents in a feature.Cache.
// Snapshots expire with the cache TTL, so Prune always reports zero. Audit
// updates rewrite the document and restart its TTL.
//
// Keys: "{prefix}:{id}" for snapshots and "{prefix}:scope:{scope key}" for
// the per-scope id index.
type CacheRepository struct {
	cache feature.Cache
	cfg   CacheConfig
	mu    sync.Mutex // serializes index and audit updates in this process
}

var _ Repository = (*CacheRepository)(nil)

// NewCacheRepository returns a repository over cache.
func NewCacheRepository(cache feature.Cache, cfg CacheConfig) *CacheRepository {
	if cfg.Prefix == "" {
		cfg.Prefix = "feature_snapshots"
	}
	return &CacheRepository{cache: cache, cfg: cfg}
}

func (r *CacheRepository) key(id string) string { return r.cfg.Prefix + ":" + id }
func (r *CacheRepository) scopeKey(scope string) string { return r.cfg.Prefix + ":scope:" + scope }

func (r *CacheRepository) Save(ctx context.Context, s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.put(ctx, s); err != nil {
		return err
	}
	ids, err := r.ids(ctx, s.Scope)
	if err != nil {
		return err
	}
	if !slices.Contains(ids, s.ID) {
		ids = append(ids, s.ID)
	}
	return r.putIDs(ctx, s.Scope, ids)
}

func (r *CacheRepository) Get(ctx context.Context, id string) (Snapshot, bool, error) {
	raw, ok, err := r.cache.Get(ctx, r.key(id))
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, false, errors.Join(ErrCorruptSnapshot, err)
	}
	return s, true, nil
}

func (r *CacheRepository) List(ctx context.Context, scope string) ([]Snapshot, error) {
	ids, err := r.ids(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := []Snapshot{}
	for _, id := range ids {
		s, ok, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *CacheRepository) MarkRestored(ctx context.Context, id string, at time.Time, by *Actor, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok, err := r.Get(ctx, id)
	if err != nil || !ok {
		return err
	}
	s.RestoredAt = &at
	s.RestoredBy = cloneActor(by)
	s.Events = append(s.Events, event)
	return r.put(ctx, s)
}

func (r *CacheRepository) Delete(ctx context.Context, id string, _ Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok, err := r.Get(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	if err := r.cache.Forget(ctx, r.key(id)); err != nil {
		return false, err
	}
	ids, err := r.ids(ctx, s.Scope)
	if err != nil {
		return false, err
	}
	return true, r.putIDs(ctx, s.Scope, slices.DeleteFunc(ids, func(v string) bool { return v == id }))
}

func (r *CacheRepository) DeleteScope(ctx context.Context, scope string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.ids(ctx, scope)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		ok, err := r.cache.Has(ctx, r.key(id))
		if err != nil {
			return n, err
		}
		if err := r.cache.Forget(ctx, r.key(id)); err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, r.cache.Forget(ctx, r.scopeKey(scope))
}

func (r *CacheRepository) Prune(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r *CacheRepository) put(ctx context.Context, s Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if r.cfg.TTL > 0 {
		return r.cache.Put(ctx, r.key(s.ID), raw, r.cfg.TTL)
	}
	return r.cache.Forever(ctx, r.key(s.ID), raw)
}

func (r *CacheRepository) ids(ctx context.Context, scope string) ([]string, error) {
	raw, ok, err := r.cache.Get(ctx, r.scopeKey(scope))
	if err != nil || !ok {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, errors.Join(ErrCorruptSnapshot, err)
	}
	return ids, nil
}

func (r *CacheRepository) putIDs(ctx context.Context, scope string, ids []string) error {
	if len(ids) == 0 {
		return r.cache.Forget(ctx, r.scopeKey(scope))
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return r.cache.Forever(ctx, r.scopeKey(scope), raw)
}
