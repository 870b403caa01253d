package policy

import "errors"

var (
	// ErrCircularInheritance is returned when roles inherit from each other in a cycle.
	ErrCircularInheritance = errors.New("policy.circular_inheritance")

	// ErrInheritanceTooDeep is returned when an inheritance chain exceeds MaxInheritanceDepth.
	ErrInheritanceTooDeep = errors.New("policy.inheritance_too_deep")

	// ErrUnknownRole is returned when a role inherits from a role that does not exist.
	ErrUnknownRole = errors.New("policy.unknown_role")
)
