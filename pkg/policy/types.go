package policy

// MaxInheritanceDepth bounds role inheritance chains.
const MaxInheritanceDepth = 10

// ScopeKind is the scope kind whose id names a role directly.
const ScopeKind = "role"

// Role grants and denies features by pattern.
//
// Patterns are exact feature names, "*" for every feature, or a dotted
// prefix followed by ".*" ("billing.*" covers "billing.invoices" and
// "billing.export.csv", but not "billing" itself).
type Role struct {
	// Grants lists features the role may use.
	Grants []string
	// Denies lists features the role may not use. Denies beat grants,
	// including grants inherited from other roles.
	Denies []string
	// Inherits lists roles whose grants and denies are included.
	Inherits []string
}
