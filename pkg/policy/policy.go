package policy

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// Policy decides feature access from role grants. It implements
// feature.Decider and is immutable after construction.
type Policy struct {
	grants map[string][]string // role -> effective grant patterns
	denies map[string][]string // role -> effective deny patterns
	log    *slog.Logger
}

var _ feature.Decider = (*Policy)(nil)

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the logger used for decision tracing.
func WithLogger(log *slog.Logger) Option {
	return func(p *Policy) {
		if log != nil {
			p.log = log
		}
	}
}

// New loads roles from source and flattens inheritance.
func New(ctx context.Context, source RoleSource, opts ...Option) (*Policy, error) {
	roles, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(roles); err != nil {
		return nil, err
	}

	p := &Policy{
		grants: make(map[string][]string, len(roles)),
		denies: make(map[string][]string, len(roles)),
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	for name := range roles {
		var grants, denies []string
		collect(name, roles, make(map[string]bool), func(r Role) {
			grants = append(grants, r.Grants...)
			denies = append(denies, r.Denies...)
		})
		p.grants[name] = normalize(grants)
		p.denies[name] = normalize(denies)
	}
	return p, nil
}

// Roles returns the known role names, sorted.
func (p *Policy) Roles() []string {
	return slices.Sorted(maps.Keys(p.grants))
}

// Decide answers for the role carried by ctx (see WithRole) or, when absent,
// by a scope of kind "role". Unknown roles and unmatched features abstain.
func (p *Policy) Decide(ctx context.Context, scope feature.Scope, name string) (feature.Decision, error) {
	role, ok := RoleFromContext(ctx)
	if !ok && scope.Kind == ScopeKind {
		role, ok = scope.IDString(), scope.IDString() != ""
	}
	if !ok {
		return feature.DecisionAbstain, nil
	}

	d := p.decide(role, name)
	p.log.DebugContext(ctx, "feature access decided",
		logger.Feature(name),
		slog.String("role", role),
		slog.String("decision", d.String()),
	)
	return d, nil
}

// Can reports whether role is granted the feature.
func (p *Policy) Can(role, name string) bool {
	return p.decide(role, name) == feature.DecisionAllow
}

func (p *Policy) decide(role, name string) feature.Decision {
	grants, known := p.grants[role]
	switch {
	case !known:
		return feature.DecisionAbstain
	case Match(p.denies[role], name):
		return feature.DecisionDeny
	case Match(grants, name):
		return feature.DecisionAllow
	default:
		return feature.DecisionAbstain
	}
}

// collect visits name and every role it inherits from, once each.
func collect(name string, roles map[string]Role, seen map[string]bool, visit func(Role)) {
	if seen[name] {
		return
	}
	seen[name] = true
	r, ok := roles[name]
	if !ok {
		return
	}
	visit(r)
	for _, parent := range r.Inherits {
		collect(parent, roles, seen, visit)
	}
}

func validate(roles map[string]Role) error {
	for name, r := range roles {
		for _, parent := range r.Inherits {
			if _, ok := roles[parent]; !ok {
				return fmt.Errorf("%w: %q inherits from %q", ErrUnknownRole, name, parent)
			}
		}
	}
	for name := range roles {
		if err := walk(name, roles, []string{name}); err != nil {
			return err
		}
	}
	return nil
}

// walk follows inheritance depth-first, failing on cycles and long chains.
func walk(name string, roles map[string]Role, path []string) error {
	if len(path) > MaxInheritanceDepth+1 {
		return fmt.Errorf("%w: %v", ErrInheritanceTooDeep, path)
	}
	for _, parent := range roles[name].Inherits {
		if slices.Contains(path, parent) {
			return fmt.Errorf("%w: %s -> %s", ErrCircularInheritance, name, parent)
		}
		if err := walk(parent, roles, append(slices.Clip(path), parent)); err != nil {
			return err
		}
	}
	return nil
}
