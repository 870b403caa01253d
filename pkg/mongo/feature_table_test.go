package mongo_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/mongo"
)

func newTable(t *testing.T) *mongo.FeatureTable {
	t.Helper()
	url := os.Getenv("FEATUREKIT_TEST_MONGO_URL")
	if url == "" {
		t.Skip("FEATUREKIT_TEST_MONGO_URL is not set")
	}
	ctx := context.Background()
	client, err := mongo.New(ctx, mongo.Config{
		ConnectionURL:  url,
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    10,
		RetryAttempts:  3,
		RetryInterval:  100 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, mongo.Healthcheck(client)(ctx))

	coll := client.Database("featurekit_test").Collection("features_" + uuid.NewString())
	t.Cleanup(func() { _ = coll.Drop(context.Background()) })

	table, err := mongo.NewFeatureTable(ctx, coll)
	require.NoError(t, err)
	return table
}

func TestFeatureTable(t *testing.T) {
	t.Parallel()
	table := newTable(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	live := feature.Record{Name: "beta", Scope: "user|1", Value: feature.String("blue")}
	expired := feature.Record{Name: "beta", Scope: "user|2", Value: feature.Int(3), ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, table.Insert(ctx, []feature.Record{live, expired}))

	got, err := table.Find(ctx, []feature.RecordKey{live.Key(), expired.Key()})
	require.NoError(t, err)
	require.Len(t, got, 2)

	fresh := feature.Record{Name: "gamma", Scope: "user|1", Value: feature.Bool(true)}
	err = table.Insert(ctx, []feature.Record{fresh, live})
	require.ErrorIs(t, err, feature.ErrUniqueViolation)
	got, err = table.Find(ctx, []feature.RecordKey{fresh.Key()})
	require.NoError(t, err)
	assert.Empty(t, got, "partial batch must be rolled back")

	names, err := table.Names(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, names)

	require.NoError(t, table.Upsert(ctx, feature.Record{Name: "beta", Scope: "user|1", Value: feature.Null()}))
	got, err = table.Find(ctx, []feature.RecordKey{live.Key()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Value.IsNull())

	n, err := table.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, table.DeleteNames(ctx, []string{"beta"}))
	names, err = table.Names(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFeatureTable_DurableStore(t *testing.T) {
	t.Parallel()
	table := newTable(t)
	ctx := context.Background()
	store := feature.NewDurableStore(table, feature.DefaultDurableConfig())
	require.NoError(t, store.Define("beta", feature.Always(true)))

	res, err := store.ResolveMany(ctx, map[string][]feature.Scope{
		"beta":    {feature.NewScope("user", "1"), feature.NewScope("user", "2")},
		"missing": {feature.NewScope("user", "1")},
	})
	require.NoError(t, err)
	assert.Equal(t, feature.Bool(true), res["beta"][0])
	assert.Equal(t, feature.Bool(true), res["beta"][1])
	assert.Equal(t, feature.UnknownValue, res["missing"][0])

	stored, err := store.ListStored(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, stored)
}
