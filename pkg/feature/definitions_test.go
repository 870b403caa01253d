package feature_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/rollout"
)

const definitionsYAML = `
features:
  beta: true
  legacy: false
  theme: dark
  seats: 10
  disabled: null
  limits:
    projects: 3
rollouts:
  new-ui:
    percentage: 25
    seed: seed1
    sticky: true
`

func TestLoadDefinitions(t *testing.T) {
	t.Parallel()

	defs, err := feature.LoadDefinitions(strings.NewReader(definitionsYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "disabled", "legacy", "limits", "new-ui", "seats", "theme"}, defs.Names())
	assert.True(t, defs.Features["beta"].Equal(feature.Bool(true)))
	assert.True(t, defs.Features["disabled"].Equal(feature.Null()))
	assert.True(t, defs.Features["seats"].Equal(feature.Int(10)))
	assert.Equal(t, map[string]any{"projects": 3.0}, defs.Features["limits"].Any())
	assert.Equal(t, feature.Rollout{Percentage: 25, Seed: "seed1", Sticky: true}, defs.Rollouts["new-ui"])

	ctx := context.Background()
	store := feature.NewMemoryStore()
	require.NoError(t, feature.DefineAll(store, defs))
	assert.Equal(t, defs.Names(), store.ListDefined())

	v, err := store.Resolve(ctx, "theme", feature.GlobalScope())
	require.NoError(t, err)
	assert.True(t, v.Equal(feature.String("dark")))

	on, err := feature.Active(ctx, store, "new-ui", feature.NewScope("user", "user-42"))
	require.NoError(t, err)
	assert.Equal(t, rollout.Assign("user-42", "new-ui", "seed1", 25, true), on)
}

func TestLoadDefinitions_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"malformed":      "features: [",
		"unknown field":  "flags: {a: true}",
		"bad percentage": "rollouts: {x: {percentage: 120}}",
		"duplicate":      "features: {x: true}\nrollouts: {x: {percentage: 10}}",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := feature.LoadDefinitions(strings.NewReader(doc))
			assert.ErrorIs(t, err, feature.ErrInvalidDefinition)
		})
	}

	defs, err := feature.LoadDefinitions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, defs.Names())
}
