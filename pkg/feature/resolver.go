package feature

import (
	"context"
	"errors"
	"slices"

	"github.com/dmitrymomot/featurekit/pkg/environment"
	"github.com/dmitrymomot/featurekit/pkg/rollout"
)

// Resolver computes the value of a feature for a scope.
// Resolvers should be pure functions of their inputs.
type Resolver interface {
	Resolve(ctx context.Context, scope Scope) (Value, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, scope Scope) (Value, error)

// Resolve calls f(ctx, scope).
func (f ResolverFunc) Resolve(ctx context.Context, scope Scope) (Value, error) {
	return f(ctx, scope)
}

// StaticResolver returns the same value for every scope.
type StaticResolver struct {
	Value Value
}

// Resolve returns the configured value.
func (s StaticResolver) Resolve(context.Context, Scope) (Value, error) {
	return s.Value, nil
}

// Static returns a resolver that always yields v.
func Static(v Value) Resolver {
	return StaticResolver{Value: v}
}

// Always returns a resolver that is on or off for everyone.
func Always(on bool) Resolver {
	return StaticResolver{Value: Bool(on)}
}

// GroupsExtractor returns the groups a scope belongs to.
type GroupsExtractor func(ctx context.Context, scope Scope) []string

// EnvironmentExtractor returns the environment of the current request.
type EnvironmentExtractor func(ctx context.Context) string

// TargetCriteria defines who gets a targeted feature.
type TargetCriteria struct {
	ScopeIDs   []string // explicit scope ids
	Groups     []string // groups whose members are enabled
	Percentage *int     // percentage rollout, 0-100
	Seed       string   // rollout seed, defaults to the feature name
	Random     bool     // per-call percentage draw instead of sticky buckets
	AllowList  []string // always enabled
	DenyList   []string // always disabled, takes precedence
}

func (c TargetCriteria) empty() bool {
	return c.ScopeIDs == nil && c.Groups == nil && c.Percentage == nil &&
		c.AllowList == nil && c.DenyList == nil
}

// TargetedResolver enables a feature for specific scopes, groups or a percentage.
type TargetedResolver struct {
	Feature  string
	Criteria TargetCriteria

	groupsExtractor GroupsExtractor
}

// TargetedOption configures a TargetedResolver.
type TargetedOption func(*TargetedResolver)

// WithGroupsExtractor sets the group extractor used for group targeting.
func WithGroupsExtractor(extractor GroupsExtractor) TargetedOption {
	return func(r *TargetedResolver) {
		r.groupsExtractor = extractor
	}
}

// NewTargetedResolver creates a resolver based on targeting criteria.
func NewTargetedResolver(feature string, criteria TargetCriteria, opts ...TargetedOption) *TargetedResolver {
	r := &TargetedResolver{
		Feature:  feature,
		Criteria: criteria,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve evaluates deny list, allow list, scope ids, groups and finally
// the percentage rollout, in that order.
func (r *TargetedResolver) Resolve(ctx context.Context, scope Scope) (Value, error) {
	if r.Criteria.empty() {
		return Bool(false), ErrInvalidResolver
	}

	id := scope.IDString()

	if len(r.Criteria.DenyList) > 0 {
		// Unidentified scopes are denied when a deny list exists.
		if id == "" || slices.Contains(r.Criteria.DenyList, id) {
			return Bool(false), nil
		}
	}

	if id != "" && (slices.Contains(r.Criteria.AllowList, id) || slices.Contains(r.Criteria.ScopeIDs, id)) {
		return Bool(true), nil
	}

	if r.inGroup(ctx, scope) {
		return Bool(true), nil
	}

	if r.Criteria.Percentage != nil {
		p := *r.Criteria.Percentage
		if p < 0 || p > 100 {
			return Bool(false), errors.Join(ErrInvalidResolver,
				errors.New("percentage must be between 0 and 100"))
		}
		return Bool(rollout.Assign(id, r.Feature, r.Criteria.Seed, p, !r.Criteria.Random)), nil
	}

	return Bool(false), nil
}

func (r *TargetedResolver) inGroup(ctx context.Context, scope Scope) bool {
	if len(r.Criteria.Groups) == 0 || r.groupsExtractor == nil {
		return false
	}
	for _, g := range r.groupsExtractor(ctx, scope) {
		if slices.Contains(r.Criteria.Groups, g) {
			return true
		}
	}
	return false
}

// Rollout describes a plain percentage rollout.
type Rollout struct {
	Percentage int    `yaml:"percentage" json:"percentage"`
	Seed       string `yaml:"seed,omitempty" json:"seed,omitempty"`
	Sticky     bool   `yaml:"sticky" json:"sticky"`
}

// NewRolloutResolver returns a resolver that includes the given share of scopes.
func NewRolloutResolver(feature string, r Rollout) Resolver {
	return ResolverFunc(func(_ context.Context, scope Scope) (Value, error) {
		return Bool(rollout.Assign(scope.IDString(), feature, r.Seed, r.Percentage, r.Sticky)), nil
	})
}

// EnvironmentResolver enables a feature in selected environments.
type EnvironmentResolver struct {
	Environments []string

	extractor EnvironmentExtractor
}

// EnvironmentOption configures an EnvironmentResolver.
type EnvironmentOption func(*EnvironmentResolver)

// WithEnvironmentExtractor overrides how the current environment is read.
func WithEnvironmentExtractor(extractor EnvironmentExtractor) EnvironmentOption {
	return func(r *EnvironmentResolver) {
		r.extractor = extractor
	}
}

// NewEnvironmentResolver creates a resolver that is on in the listed environments.
// By default the environment is read with environment.FromContext.
func NewEnvironmentResolver(environments []string, opts ...EnvironmentOption) *EnvironmentResolver {
	r := &EnvironmentResolver{
		Environments: environments,
		extractor: func(ctx context.Context) string {
			return string(environment.FromContext(ctx))
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve reports whether the request environment is enabled.
func (r *EnvironmentResolver) Resolve(ctx context.Context, _ Scope) (Value, error) {
	if len(r.Environments) == 0 {
		return Bool(false), ErrInvalidResolver
	}
	if r.extractor == nil {
		return Bool(false), nil
	}
	env := r.extractor(ctx)
	if env == "" {
		return Bool(false), nil
	}
	return Bool(slices.Contains(r.Environments, env)), nil
}

type compositeResolver struct {
	resolvers []Resolver
	all       bool
}

// And is active when every child resolver is active.
func And(resolvers ...Resolver) Resolver {
	return &compositeResolver{resolvers: resolvers, all: true}
}

// Or is active when at least one child resolver is active.
func Or(resolvers ...Resolver) Resolver {
	return &compositeResolver{resolvers: resolvers}
}

func (c *compositeResolver) Resolve(ctx context.Context, scope Scope) (Value, error) {
	if len(c.resolvers) == 0 {
		return Bool(false), ErrInvalidResolver
	}
	for _, r := range c.resolvers {
		v, err := r.Resolve(ctx, scope)
		if err != nil {
			return Bool(false), err
		}
		// Short-circuit: first inactive child for And, first active for Or.
		if v.IsActive() != c.all {
			return Bool(!c.all), nil
		}
	}
	return Bool(c.all), nil
}
