// Package policy implements a role-based feature.Decider.
//
// Roles grant and deny feature patterns and may inherit from other roles.
// Inheritance is flattened once in New, which also rejects unknown parents,
// cycles and chains deeper than MaxInheritanceDepth.
//
//	p, err := policy.New(ctx, policy.NewMemoryRoleSource(map[string]policy.Role{
//		"member": {Grants: []string{"reports"}},
//		"admin":  {Grants: []string{"*"}, Denies: []string{"billing.legacy"}, Inherits: []string{"member"}},
//	}))
//	store := feature.NewAuthorizationStore(p)
//	on, err := feature.Active(policy.WithRole(ctx, "admin"), store, "billing.export", scope)
//
// The role is taken from the request context first and from a scope of kind
// "role" otherwise. A role without an opinion on a feature abstains, which the
// authorization store reports as an unknown feature.
package policy
