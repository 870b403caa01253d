package feature_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// racingTable simulates a concurrent writer: before each of the first
// `races` inserts it stores the competing records itself.
type racingTable struct {
	*feature.MemoryTable

	mu      sync.Mutex
	races   int
	winner  feature.Value
	inserts int
	finds   int
}

func (t *racingTable) Find(ctx context.Context, keys []feature.RecordKey) ([]feature.Record, error) {
	t.mu.Lock()
	t.finds++
	t.mu.Unlock()
	return t.MemoryTable.Find(ctx, keys)
}

func (t *racingTable) Insert(ctx context.Context, records []feature.Record) error {
	t.mu.Lock()
	t.inserts++
	race := t.races > 0
	if race {
		t.races--
	}
	t.mu.Unlock()

	if race {
		for _, r := range records {
			r.Value = t.winner
			_ = t.MemoryTable.Delete(ctx, []feature.RecordKey{r.Key()})
			_ = t.MemoryTable.Upsert(ctx, r)
		}
	}
	return t.MemoryTable.Insert(ctx, records)
}

func fastRetry(attempts int) feature.DurableConfig {
	return feature.DurableConfig{RetryAttempts: attempts, RetryInterval: time.Millisecond}
}

func TestDurableStore_ResolveLosesRace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	table := &racingTable{MemoryTable: feature.NewMemoryTable(), races: 1, winner: feature.String("winner")}
	s := feature.NewDurableStore(table, fastRetry(3))
	require.NoError(t, s.Define("f", feature.Static(feature.String("loser"))))

	v, err := s.Resolve(ctx, "f", feature.NewScope("user", 1))
	require.NoError(t, err)
	assert.True(t, v.Equal(feature.String("winner")))
	assert.Equal(t, 1, table.inserts)
	assert.Equal(t, 2, table.finds)
}

func TestDurableStore_ConflictExhaustsRetries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A table whose inserts always collide and whose reads never see the winner.
	table := &alwaysConflicting{MemoryTable: feature.NewMemoryTable()}
	s := feature.NewDurableStore(table, fastRetry(3))
	require.NoError(t, s.Define("f", feature.Always(true)))

	_, err := s.Resolve(ctx, "f", feature.GlobalScope())
	require.ErrorIs(t, err, feature.ErrConcurrencyConflict)
	assert.Equal(t, 3, table.inserts)

	_, err = s.ResolveMany(ctx, map[string][]feature.Scope{"f": {feature.GlobalScope()}})
	require.ErrorIs(t, err, feature.ErrConcurrencyConflict)
	assert.Equal(t, 6, table.inserts)
}

type alwaysConflicting struct {
	*feature.MemoryTable
	inserts int
}

func (t *alwaysConflicting) Insert(context.Context, []feature.Record) error {
	t.inserts++
	return feature.ErrUniqueViolation
}

func TestDurableStore_ResolveManyRerunsWholeBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	table := &racingTable{MemoryTable: feature.NewMemoryTable(), races: 1, winner: feature.Bool(false)}
	s := feature.NewDurableStore(table, fastRetry(3))

	r := counting(func(feature.Scope) feature.Value { return feature.Bool(true) })
	require.NoError(t, s.Define("f", r))

	scopes := []feature.Scope{feature.NewScope("user", 1), feature.NewScope("user", 2)}
	got, err := s.ResolveMany(ctx, map[string][]feature.Scope{"f": scopes})
	require.NoError(t, err)

	// the concurrent writer stored both rows first, so its values win
	require.Len(t, got["f"], 2)
	assert.True(t, got["f"][0].Equal(feature.Bool(false)))
	assert.True(t, got["f"][1].Equal(feature.Bool(false)))
	assert.EqualValues(t, 2, r.calls.Load())
	assert.Equal(t, 1, table.inserts)
	assert.Equal(t, 2, table.finds)
}

func TestDurableStore_BulkInsertIsAllOrNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	table := feature.NewMemoryTable()
	require.NoError(t, table.Insert(ctx, []feature.Record{{Name: "f", Scope: "user|2", Value: feature.Bool(true)}}))

	err := table.Insert(ctx, []feature.Record{
		{Name: "f", Scope: "user|1", Value: feature.Bool(true)},
		{Name: "f", Scope: "user|2", Value: feature.Bool(true)},
	})
	require.ErrorIs(t, err, feature.ErrUniqueViolation)
	assert.Equal(t, 1, table.Len())
}

func TestDurableStore_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	table := feature.NewMemoryTable()
	cfg := fastRetry(3)
	cfg.RecordTTL = time.Hour
	s := feature.NewDurableStore(table, cfg, feature.WithClock(clock))
	r := counting(func(feature.Scope) feature.Value { return feature.Bool(true) })
	require.NoError(t, s.Define("f", r))

	scope := feature.NewScope("user", 1)
	_, err := s.Resolve(ctx, "f", scope)
	require.NoError(t, err)
	_, err = s.Resolve(ctx, "f", scope)
	require.NoError(t, err)
	assert.EqualValues(t, 1, r.calls.Load())

	advance(time.Hour)

	stored, err := s.ListStored(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
	_, ok, err := s.Lookup(ctx, "f", scope)
	require.NoError(t, err)
	assert.False(t, ok)

	// expired record is deleted and recomputed
	_, err = s.Resolve(ctx, "f", scope)
	require.NoError(t, err)
	assert.EqualValues(t, 2, r.calls.Load())
	assert.Equal(t, 1, table.Len())

	_, err = s.ResolveMany(ctx, map[string][]feature.Scope{"f": {feature.NewScope("user", 2)}})
	require.NoError(t, err)
	advance(2 * time.Hour)

	n, err := s.EvictExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 0, table.Len())
}

func TestDurableStore_TableErrorsPropagate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("connection reset")
	s := feature.NewDurableStore(&failingTable{MemoryTable: feature.NewMemoryTable(), err: boom}, fastRetry(3))
	require.NoError(t, s.Define("f", feature.Always(true)))

	_, err := s.Resolve(ctx, "f", feature.GlobalScope())
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, feature.ErrConcurrencyConflict)
}

type failingTable struct {
	*feature.MemoryTable
	err error
}

func (t *failingTable) Find(context.Context, []feature.RecordKey) ([]feature.Record, error) {
	return nil, t.err
}
