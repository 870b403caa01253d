package pg_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/pg"
)

func TestGroupRepository(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	groups := pg.NewGroupRepository(pool)

	g, err := groups.Define(ctx, "billing", []string{"invoices", "invoices", "tax"}, map[string]any{"owner": "finance"})
	require.NoError(t, err)
	assert.Equal(t, []string{"invoices", "tax"}, g.Features)
	assert.Equal(t, "finance", g.Metadata["owner"])
	created := g.CreatedAt

	g, err = groups.Define(ctx, "billing", []string{"tax"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tax"}, g.Features)
	assert.True(t, created.Equal(g.CreatedAt))

	g, err = groups.AddFeatures(ctx, "billing", "refunds", "tax")
	require.NoError(t, err)
	assert.Equal(t, []string{"tax", "refunds"}, g.Features)

	g, err = groups.RemoveFeatures(ctx, "billing", "tax")
	require.NoError(t, err)
	assert.Equal(t, []string{"refunds"}, g.Features)

	g, err = groups.Update(ctx, "billing", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, g.Features)

	_, err = groups.Update(ctx, "missing", []string{"a"})
	require.ErrorIs(t, err, feature.ErrGroupNotFound)

	list, err := groups.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, groups.Delete(ctx, "billing"))
	require.NoError(t, groups.Delete(ctx, "billing"))
	_, err = groups.Get(ctx, "billing")
	require.ErrorIs(t, err, feature.ErrGroupNotFound)
}
