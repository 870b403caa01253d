package feature_test

import (
	"math"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

func TestValue_IsActive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  feature.Value
		active bool
	}{
		{"null", feature.Null(), false},
		{"false", feature.Bool(false), false},
		{"true", feature.Bool(true), true},
		{"zero", feature.Int(0), true},
		{"empty string", feature.String(""), true},
		{"string", feature.String("dark"), true},
		{"structured", feature.MustValueOf(map[string]any{"a": 1}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.active, tt.value.IsActive())
		})
	}
}

func TestValue_Equal(t *testing.T) {
	t.Parallel()

	assert.True(t, feature.Null().Equal(feature.Value{}))
	assert.False(t, feature.Null().Equal(feature.Bool(false)))
	assert.False(t, feature.Int(0).Equal(feature.Bool(false)))
	assert.False(t, feature.String("").Equal(feature.Null()))
	assert.True(t, feature.Int(3).Equal(feature.Number(3)))
	assert.True(t, feature.MustValueOf([]int{1, 2}).Equal(feature.MustValueOf([]any{1.0, 2.0})))
	assert.True(t, feature.UnknownValue.Equal(feature.Bool(false)))
}

func TestValueOf(t *testing.T) {
	t.Parallel()

	t.Run("natives", func(t *testing.T) {
		t.Parallel()
		v, err := feature.ValueOf(nil)
		require.NoError(t, err)
		assert.Equal(t, feature.KindNull, v.Kind())

		v, err = feature.ValueOf(int64(7))
		require.NoError(t, err)
		n, ok := v.AsNumber()
		assert.True(t, ok)
		assert.InDelta(t, 7.0, n, 0)

		v, err = feature.ValueOf("x")
		require.NoError(t, err)
		s, ok := v.AsString()
		assert.True(t, ok)
		assert.Equal(t, "x", s)
	})

	t.Run("structs are normalized", func(t *testing.T) {
		t.Parallel()
		type limits struct {
			Projects int `json:"projects"`
		}
		v, err := feature.ValueOf(limits{Projects: 5})
		require.NoError(t, err)
		assert.Equal(t, feature.KindStructured, v.Kind())
		assert.Equal(t, map[string]any{"projects": 5.0}, v.Any())

		var out limits
		require.NoError(t, v.Decode(&out))
		assert.Equal(t, 5, out.Projects)
	})

	t.Run("rejects unsupported", func(t *testing.T) {
		t.Parallel()
		_, err := feature.ValueOf(make(chan int))
		assert.ErrorIs(t, err, feature.ErrInvalidValue)

		_, err = feature.ValueOf(math.NaN())
		assert.ErrorIs(t, err, feature.ErrInvalidValue)

		_, err = feature.Structured("scalar")
		assert.ErrorIs(t, err, feature.ErrInvalidValue)
	})
}

func TestValue_JSON(t *testing.T) {
	t.Parallel()

	values := []feature.Value{
		feature.Null(),
		feature.Bool(false),
		feature.Bool(true),
		feature.Int(0),
		feature.Number(1.5),
		feature.String(""),
		feature.String("dark"),
		feature.MustValueOf(map[string]any{"plan": "pro", "seats": 3}),
		feature.MustValueOf([]string{"a", "b"}),
	}
	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()
			raw, err := json.Marshal(v)
			require.NoError(t, err)

			var back feature.Value
			require.NoError(t, json.Unmarshal(raw, &back))
			assert.True(t, v.Equal(back), "got %s", back)
			assert.Equal(t, v.Kind(), back.Kind())
		})
	}

	assert.Equal(t, "null", feature.Null().String())
	assert.Equal(t, `"x"`, feature.String("x").String())
	assert.Equal(t, "false", feature.Bool(false).String())
}
