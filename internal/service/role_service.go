package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/domain"
	apperrors "github.com/spec-kit/storefront-web/pkg/util/errorutil"
)

// RoleBackend is the part of the REST client role administration needs.
type RoleBackend interface {
	ListRoles(ctx context.Context, params backend.ListParams) (*backend.RolePage, error)
	GetRole(ctx context.Context, id string) (*domain.Role, error)
	UpdateRolePermissions(ctx context.Context, role domain.Role) (*domain.Role, error)
}

// RoleService backs the role administration pages.
type RoleService struct {
	backend RoleBackend
	logger  *zap.Logger
}

// NewRoleService builds the service.
func NewRoleService(b RoleBackend, logger *zap.Logger) *RoleService {
	return &RoleService{backend: b, logger: logger}
}

// RoleView is a role with the permission selection shown on its page.
type RoleView struct {
	Role     *domain.Role
	Selected []string
	// Locked marks sentinel roles whose permissions cannot be edited.
	Locked bool
}

// Selection expands the sentinels of a role for display: ADMIN selects the
// whole catalog, BASIC only the dashboard. Sentinel roles are locked.
func Selection(role *domain.Role) ([]string, bool) {
	if role == nil {
		return []string{}, false
	}
	holder := &domain.User{Role: role}
	selected := auth.ResolveEffectivePermissions(holder)
	locked := contains(role.Permissions, auth.PermAdmin) || contains(role.Permissions, auth.PermBasic)
	return selected, locked
}

// ToggleGroup flips a whole domain or entity: when every permission of the group
// is selected they are all removed, otherwise the missing ones are added.
func ToggleGroup(selected []string, path string) ([]string, error) {
	node, ok := auth.Group(path)
	if !ok {
		return nil, apperrors.NewValidationError("unknown permission group", map[string]any{"group": path})
	}
	group := auth.Flatten(node)
	if GroupChecked(selected, path) {
		out := make([]string, 0, len(selected))
		for _, v := range selected {
			if !contains(group, v) {
				out = append(out, v)
			}
		}
		return out, nil
	}
	out := append([]string(nil), selected...)
	for _, v := range group {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// GroupChecked reports whether every permission of the group is selected.
func GroupChecked(selected []string, path string) bool {
	node, ok := auth.Group(path)
	if !ok {
		return false
	}
	group := auth.Flatten(node)
	if len(group) == 0 {
		return false
	}
	for _, v := range group {
		if !contains(selected, v) {
			return false
		}
	}
	return true
}

// List returns a page of roles.
func (s *RoleService) List(ctx context.Context, params backend.ListParams) (*backend.RolePage, error) {
	return s.backend.ListRoles(ctx, params)
}

// Get loads a role with its display selection.
func (s *RoleService) Get(ctx context.Context, id string) (*RoleView, error) {
	role, err := s.backend.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	selected, locked := Selection(role)
	return &RoleView{Role: role, Selected: selected, Locked: locked}, nil
}

// UpdatePermissions stores a new selection for a role, after applying an
// optional group toggle. Sentinel roles and unknown values are refused.
func (s *RoleService) UpdatePermissions(ctx context.Context, id string, selected []string, toggleGroup string) (*RoleView, error) {
	view, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.Locked {
		return nil, apperrors.NewForbidden("permissions of a built-in role cannot be changed")
	}
	if toggleGroup != "" {
		if selected, err = ToggleGroup(selected, toggleGroup); err != nil {
			return nil, err
		}
	}

	clean := make([]string, 0, len(selected))
	for _, v := range selected {
		if v == auth.PermAdmin || v == auth.PermBasic || !auth.Known(v) {
			return nil, apperrors.NewValidationError("invalid permission", map[string]any{"permission": v})
		}
		if !contains(clean, v) {
			clean = append(clean, v)
		}
	}
	sort.Strings(clean)

	updated, err := s.backend.UpdateRolePermissions(ctx, domain.Role{ID: view.Role.ID, Name: view.Role.Name, Permissions: clean})
	if err != nil {
		return nil, err
	}
	s.logger.Info("role permissions updated", zap.String("role_id", id), zap.Int("count", len(clean)))
	sel, locked := Selection(updated)
	return &RoleView{Role: updated, Selected: sel, Locked: locked}, nil
}

func contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
