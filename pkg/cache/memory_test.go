package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/cache"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("forever and get", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemoryCache(cache.Config{Capacity: 10})
		buf := []byte("true")
		require.NoError(t, c.Forever(ctx, "k", buf))
		buf[0] = 'X'

		v, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "true", string(v))
	})

	t.Run("put expires", func(t *testing.T) {
		t.Parallel()
		clk := newClock()
		c := cache.NewMemoryCache(cache.Config{Capacity: 10})
		c.SetClock(clk.Now)

		require.NoError(t, c.Put(ctx, "k", []byte("1"), 2*time.Second))
		ok, err := c.Has(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		clk.Advance(2 * time.Second)
		_, ok, err = c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("zero ttl does not store", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemoryCache(cache.Config{Capacity: 10})
		require.NoError(t, c.Forever(ctx, "k", []byte("1")))
		require.NoError(t, c.Put(ctx, "k", []byte("2"), 0))
		ok, _ := c.Has(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("forget flush keys", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemoryCache(cache.Config{})
		require.NoError(t, c.Forever(ctx, "features:a:user|1", []byte("1")))
		require.NoError(t, c.Forever(ctx, "features:b:user|1", []byte("1")))
		require.NoError(t, c.Forever(ctx, "other", []byte("1")))

		keys, err := c.Keys(ctx, "features:*")
		require.NoError(t, err)
		assert.Equal(t, []string{"features:a:user|1", "features:b:user|1"}, keys)

		require.NoError(t, c.Forget(ctx, "other"))
		ok, _ := c.Has(ctx, "other")
		assert.False(t, ok)

		require.NoError(t, c.Flush(ctx))
		keys, err = c.Keys(ctx, "*")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("forever survives eviction", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemoryCache(cache.Config{Capacity: 2})
		require.NoError(t, c.Forever(ctx, "index", []byte("[]")))
		for _, k := range []string{"a", "b", "c", "d"} {
			require.NoError(t, c.Put(ctx, k, []byte("1"), time.Minute))
		}

		ok, err := c.Has(ctx, "index")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, c.Len())

		ok, err = c.Has(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put unpins", func(t *testing.T) {
		t.Parallel()
		clk := newClock()
		c := cache.NewMemoryCache(cache.Config{Capacity: 2})
		c.SetClock(clk.Now)
		require.NoError(t, c.Forever(ctx, "k", []byte("1")))
		require.NoError(t, c.Put(ctx, "k", []byte("2"), time.Second))

		clk.Advance(time.Second)
		ok, err := c.Has(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
