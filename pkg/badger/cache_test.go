package badger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/badger"
	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/snapshot"
)

func newCache(t *testing.T) *badger.Cache {
	t.Helper()
	db, err := badger.Open(badger.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return badger.NewCache(db)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("persistent requires path", func(t *testing.T) {
		t.Parallel()
		_, err := badger.Open(badger.DefaultConfig())
		assert.ErrorIs(t, err, badger.ErrPathRequired)
	})

	t.Run("persistent", func(t *testing.T) {
		t.Parallel()
		cfg := badger.DefaultConfig()
		cfg.Path = t.TempDir()
		cfg.SyncWrites = false

		db, err := badger.Open(cfg)
		require.NoError(t, err)
		c := badger.NewCache(db)
		require.NoError(t, c.Forever(context.Background(), "k", []byte("v")))
		require.NoError(t, db.Close())

		db, err = badger.Open(cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		v, ok, err := badger.NewCache(db).Get(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", string(v))
	})
}

func TestCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		c := newCache(t)
		_, ok, err := c.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ttl expires", func(t *testing.T) {
		t.Parallel()
		c := newCache(t)
		require.NoError(t, c.Put(ctx, "k", []byte("v"), time.Second))
		ok, err := c.Has(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		assert.Eventually(t, func() bool {
			ok, err := c.Has(ctx, "k")
			return err == nil && !ok
		}, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("zero ttl deletes", func(t *testing.T) {
		t.Parallel()
		c := newCache(t)
		require.NoError(t, c.Forever(ctx, "k", []byte("v")))
		require.NoError(t, c.Put(ctx, "k", []byte("v"), 0))
		ok, err := c.Has(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys forget flush", func(t *testing.T) {
		t.Parallel()
		c := newCache(t)
		for _, k := range []string{"a:1", "a:2", "b:1"} {
			require.NoError(t, c.Forever(ctx, k, []byte("x")))
		}
		keys, err := c.Keys(ctx, "a:")
		require.NoError(t, err)
		assert.Equal(t, []string{"a:1", "a:2"}, keys)

		require.NoError(t, c.Forget(ctx, "a:1"))
		keys, err = c.Keys(ctx, "a:")
		require.NoError(t, err)
		assert.Equal(t, []string{"a:2"}, keys)

		require.NoError(t, c.Flush(ctx))
		keys, err = c.Keys(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestCache_BacksStores(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newCache(t)

	store := feature.NewCacheStore(c, feature.CacheConfig{Prefix: "features"})
	scope := feature.NewScope("user", "7")
	require.NoError(t, store.Set(ctx, "theme", scope, feature.String("dark")))

	engine := snapshot.NewEngine(store, snapshot.NewCacheRepository(c, snapshot.CacheConfig{Prefix: "snapshots"}))
	id, err := engine.Capture(ctx, scope)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "theme", scope, feature.String("light")))
	require.NoError(t, engine.Restore(ctx, id, scope, nil))

	v, ok, err := store.Lookup(ctx, "theme", scope)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, feature.String("dark"), v)
}
