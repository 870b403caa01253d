package environment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/featurekit/pkg/environment"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want environment.Environment
	}{
		{"dev", environment.Development},
		{"Development", environment.Development},
		{" stage ", environment.Staging},
		{"staging", environment.Staging},
		{"PROD", environment.Production},
		{"production", environment.Production},
		{"qa", environment.Environment("qa")},
		{"", environment.Environment("")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, environment.Parse(tt.in))
		})
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Equal(t, environment.Environment(""), environment.FromContext(ctx))
	assert.False(t, environment.IsProduction(ctx))

	ctx = environment.WithContext(ctx, environment.Production)
	assert.Equal(t, environment.Production, environment.FromContext(ctx))
	assert.True(t, environment.IsProduction(ctx))
	assert.False(t, environment.IsStaging(ctx))
	assert.False(t, environment.IsDevelopment(ctx))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := environment.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(environment.WithContext(context.Background(), environment.Staging))
	assert.True(t, ok)
	assert.Equal(t, "env", attr.Key)
	assert.Equal(t, "staging", attr.Value.String())
}
