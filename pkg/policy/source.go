package policy

import (
	"context"
	"slices"
	"sync"
)

// RoleSource provides role definitions.
type RoleSource interface {
	Load(ctx context.Context) (map[string]Role, error)
}

type memoryRoleSource struct {
	mu    sync.RWMutex
	roles map[string]Role
}

// NewMemoryRoleSource returns a RoleSource over a copy of roles.
func NewMemoryRoleSource(roles map[string]Role) RoleSource {
	cp := make(map[string]Role, len(roles))
	for name, r := range roles {
		cp[name] = Role{
			Grants:   slices.Clone(r.Grants),
			Denies:   slices.Clone(r.Denies),
			Inherits: slices.Clone(r.Inherits),
		}
	}
	return &memoryRoleSource{roles: cp}
}

// Load returns the roles. Callers must treat the map as read-only.
func (s *memoryRoleSource) Load(context.Context) (map[string]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles, nil
}
