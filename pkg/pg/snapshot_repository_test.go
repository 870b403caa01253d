package pg_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/pg"
	"github.com/dmitrymomot/featurekit/pkg/snapshot"
)

func TestSnapshotRepository_EngineRoundTrip(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()

	store := feature.NewDurableStore(pg.NewFeatureTable(pool), feature.DefaultDurableConfig())
	engine := snapshot.NewEngine(store, pg.NewSnapshotRepository(pool))
	scope := feature.NewScope("team", "9")
	admin := &snapshot.Actor{Type: "user", ID: "admin"}

	require.NoError(t, store.Set(ctx, "theme", scope, feature.String("dark")))
	require.NoError(t, store.Set(ctx, "seats", scope, feature.Int(10)))

	id, err := engine.Capture(ctx, scope, snapshot.WithLabel("before"), snapshot.WithCreatedBy(*admin))
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "theme", scope, feature.String("light")))
	require.NoError(t, store.Set(ctx, "extra", scope, feature.Bool(true)))

	require.NoError(t, engine.Restore(ctx, id, scope, admin))

	v, ok, err := store.Lookup(ctx, "theme", scope)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, feature.String("dark"), v)
	_, ok, err = store.Lookup(ctx, "extra", scope)
	require.NoError(t, err)
	assert.False(t, ok)

	s, ok, err := engine.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "before", s.Label)
	assert.Equal(t, []string{"seats", "theme"}, s.Names())
	assert.Equal(t, admin, s.CreatedBy)
	assert.Equal(t, admin, s.RestoredBy)
	require.NotNil(t, s.RestoredAt)

	events, err := engine.EventHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, snapshot.EventCreated, events[0].Type)
	assert.Equal(t, snapshot.EventRestored, events[1].Type)
	assert.EqualValues(t, 2, events[1].Metadata[snapshot.MetaFeaturesRestored])

	list, err := engine.List(ctx, scope)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, engine.Delete(ctx, id, admin))
	_, ok, err = engine.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotRepository_ScopeAndPrune(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo := pg.NewSnapshotRepository(pool)
	now := time.Now().UTC().Truncate(time.Millisecond)

	save := func(id, scope string, createdAt time.Time) {
		require.NoError(t, repo.Save(ctx, snapshot.Snapshot{
			ID:        id,
			Scope:     scope,
			Entries:   []snapshot.Entry{{Feature: "a", Value: feature.Bool(true), IsActive: true}},
			CreatedAt: createdAt,
			Events:    []snapshot.Event{{Type: snapshot.EventCreated, Timestamp: createdAt}},
		}))
	}
	save("old", "user|1", now.Add(-48*time.Hour))
	save("new", "user|1", now)
	save("other", "user|2", now)

	list, err := repo.List(ctx, "user|1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
	assert.Equal(t, feature.Bool(true), list[0].Entries[0].Value)

	n, err := repo.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DeleteScope(ctx, "user|1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := repo.Delete(ctx, "missing", snapshot.Event{Type: snapshot.EventDeleted, Timestamp: now})
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.Delete(ctx, "other", snapshot.Event{Type: snapshot.EventDeleted, Timestamp: now})
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestSnapshotRepository_EntriesInByteOrder(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	store := feature.NewDurableStore(pg.NewFeatureTable(pool), feature.DefaultDurableConfig())
	engine := snapshot.NewEngine(store, pg.NewSnapshotRepository(pool))
	scope := feature.NewScope("user", "1")

	for _, name := range []string{"alpha", "Beta", "gamma"} {
		require.NoError(t, store.Set(ctx, name, scope, feature.Bool(true)))
	}
	id, err := engine.Capture(ctx, scope)
	require.NoError(t, err)

	s, ok, err := engine.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Beta", "alpha", "gamma"}, s.Names())

	e, ok := s.Entry("Beta")
	require.True(t, ok)
	assert.Equal(t, feature.Bool(true), e.Value)
	_, ok = s.Entry("gamma")
	assert.True(t, ok)
}
