package policy_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/policy"
)

func testRoles() map[string]policy.Role {
	return map[string]policy.Role{
		"viewer": {Grants: []string{"reports", "dashboard.*"}},
		"editor": {Grants: []string{"editor.v2"}, Inherits: []string{"viewer"}},
		"admin": {
			Grants:   []string{"*"},
			Denies:   []string{"billing.legacy"},
			Inherits: []string{"editor"},
		},
		"intern": {Denies: []string{"dashboard.*"}, Inherits: []string{"viewer"}},
	}
}

func newPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.New(context.Background(), policy.NewMemoryRoleSource(testRoles()))
	require.NoError(t, err)
	return p
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		patterns []string
		feature  string
		want     bool
	}{
		{[]string{"reports"}, "reports", true},
		{[]string{"reports"}, "reports.v2", false},
		{[]string{"*"}, "anything", true},
		{[]string{"billing.*"}, "billing.export", true},
		{[]string{"billing.*"}, "billing.export.csv", true},
		{[]string{"billing.*"}, "billing", false},
		{[]string{"billing.*"}, "billingx", false},
		{nil, "reports", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%s", tt.patterns, tt.feature), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, policy.Match(tt.patterns, tt.feature))
		})
	}
}

func TestPolicy_Decide(t *testing.T) {
	t.Parallel()
	p := newPolicy(t)
	user := feature.NewScope("user", 1)

	tests := []struct {
		role    string
		feature string
		want    feature.Decision
	}{
		{"viewer", "reports", feature.DecisionAllow},
		{"viewer", "dashboard.sales", feature.DecisionAllow},
		{"viewer", "editor.v2", feature.DecisionAbstain},
		{"editor", "reports", feature.DecisionAllow},
		{"editor", "editor.v2", feature.DecisionAllow},
		{"admin", "billing.export", feature.DecisionAllow},
		{"admin", "billing.legacy", feature.DecisionDeny},
		{"intern", "reports", feature.DecisionAllow},
		{"intern", "dashboard.sales", feature.DecisionDeny},
		{"ghost", "reports", feature.DecisionAbstain},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.feature, func(t *testing.T) {
			t.Parallel()
			d, err := p.Decide(policy.WithRole(context.Background(), tt.role), user, tt.feature)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestPolicy_RoleSources(t *testing.T) {
	t.Parallel()
	p := newPolicy(t)
	ctx := context.Background()

	d, err := p.Decide(ctx, feature.NewScope(policy.ScopeKind, "editor"), "editor.v2")
	require.NoError(t, err)
	assert.Equal(t, feature.DecisionAllow, d)

	// context role wins over the scope
	d, err = p.Decide(policy.WithRole(ctx, "viewer"), feature.NewScope(policy.ScopeKind, "editor"), "editor.v2")
	require.NoError(t, err)
	assert.Equal(t, feature.DecisionAbstain, d)

	d, err = p.Decide(ctx, feature.NewScope("user", 1), "reports")
	require.NoError(t, err)
	assert.Equal(t, feature.DecisionAbstain, d)

	assert.Equal(t, []string{"admin", "editor", "intern", "viewer"}, p.Roles())
	assert.True(t, p.Can("admin", "anything"))
	assert.False(t, p.Can("viewer", "anything"))
}

func TestPolicy_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := map[string]struct {
		roles map[string]policy.Role
		err   error
	}{
		"self cycle": {
			roles: map[string]policy.Role{"a": {Inherits: []string{"a"}}},
			err:   policy.ErrCircularInheritance,
		},
		"cycle": {
			roles: map[string]policy.Role{
				"a": {Inherits: []string{"b"}},
				"b": {Inherits: []string{"c"}},
				"c": {Inherits: []string{"a"}},
			},
			err: policy.ErrCircularInheritance,
		},
		"unknown parent": {
			roles: map[string]policy.Role{"a": {Inherits: []string{"nope"}}},
			err:   policy.ErrUnknownRole,
		},
		"too deep": {
			roles: chain(policy.MaxInheritanceDepth + 2),
			err:   policy.ErrInheritanceTooDeep,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := policy.New(ctx, policy.NewMemoryRoleSource(tt.roles))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := policy.New(ctx, policy.NewMemoryRoleSource(chain(policy.MaxInheritanceDepth+1)))
	assert.NoError(t, err)
}

func chain(n int) map[string]policy.Role {
	roles := make(map[string]policy.Role, n)
	for i := range n {
		r := policy.Role{Grants: []string{fmt.Sprintf("f%d", i)}}
		if i+1 < n {
			r.Inherits = []string{fmt.Sprintf("r%d", i+1)}
		}
		roles[fmt.Sprintf("r%d", i)] = r
	}
	return roles
}

type failingSource struct{ err error }

func (s failingSource) Load(context.Context) (map[string]policy.Role, error) { return nil, s.err }

func TestPolicy_SourceError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := policy.New(context.Background(), failingSource{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestPolicy_WithAuthorizationStore(t *testing.T) {
	t.Parallel()
	ctx := policy.WithRole(context.Background(), "intern")
	p := newPolicy(t)
	store := feature.NewAuthorizationStore(p)
	scope := feature.NewScope("user", "u1")

	on, err := feature.Active(ctx, store, "reports", scope)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = feature.Active(ctx, store, "dashboard.sales", scope)
	require.NoError(t, err)
	assert.False(t, on)
}
