// Package rbac resolves role permissions and guards routes with them.
package rbac

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrUnknownRole indicates a role missing from the policy.
var ErrUnknownRole = errors.New("rbac: unknown role")

// Service answers permission questions from a static policy.
type Service struct {
	grants map[string][]string
}

// NewService constructs a Service from policy, normalising names.
func NewService(policy Policy) *Service {
	grants := make(map[string][]string, len(policy))
	for role, perms := range policy {
		grants[normalize(role)] = normalizePermissions(perms)
	}
	return &Service{grants: grants}
}

// EffectivePermissions returns the permissions granted to role.
func (s *Service) EffectivePermissions(_ context.Context, role string) ([]string, error) {
	perms, ok := s.grants[normalize(role)]
	if !ok {
		return nil, ErrUnknownRole
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out, nil
}

// ListRoles returns every role ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	roles := make([]Role, 0, len(s.grants))
	for name := range s.grants {
		perms, err := s.EffectivePermissions(ctx, name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, Role{Name: name, Permissions: perms})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
