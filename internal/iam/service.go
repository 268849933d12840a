package iam

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Store is the persistence surface. Satisfied by *Repository.
type Store interface {
	ListRoles(ctx context.Context, limit, offset int) ([]authz.Role, int, time.Time, error)
	GetRole(ctx context.Context, id int64) (authz.Role, error)
	CreateRole(ctx context.Context, role authz.Role) (authz.Role, error)
	UpdateRole(ctx context.Context, role authz.Role) (authz.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	PermissionCodesForRole(ctx context.Context, id int64) ([]string, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, codes []string) error

	ListPermissions(ctx context.Context, limit, offset int) ([]authz.Permission, int, time.Time, error)

	ListGroups(ctx context.Context, limit, offset int) ([]authz.Group, int, time.Time, error)
	GetGroup(ctx context.Context, id int64) (authz.Group, error)
	CreateGroup(ctx context.Context, group authz.Group) (authz.Group, error)
	UpdateGroup(ctx context.Context, group authz.Group) (authz.Group, error)
	DeleteGroup(ctx context.Context, id int64) error

	ListUsers(ctx context.Context, limit, offset int) ([]UserSummary, int, time.Time, error)
	GetUser(ctx context.Context, id int64) (UserSummary, error)

	// InTx runs fn inside a repeatable-read transaction; assignment
	// mutations and the superuser holder count must happen in the same
	// transaction or concurrent reassignments could strand the system
	// without a superuser.
	InTx(ctx context.Context, fn func(AssignmentTx) error) error
}

// AssignmentTx is the transactional surface for user assignment changes.
type AssignmentTx interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	MissingRoleIDs(ctx context.Context, ids []int64) ([]int64, error)
	MissingGroupIDs(ctx context.Context, ids []int64) ([]int64, error)
	UserRoleIDs(ctx context.Context, userID int64) ([]int64, error)
	UserGroupIDs(ctx context.Context, userID int64) ([]int64, error)
	RolesGrantSuperuser(ctx context.Context, roleIDs []int64) (bool, error)
	GroupsGrantSuperuser(ctx context.Context, groupIDs []int64) (bool, error)
	SuperuserHoldersExcluding(ctx context.Context, userID int64) (int, error)
	SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
	SetUserGroups(ctx context.Context, userID int64, groupIDs []int64) error
	SetGroupRoles(ctx context.Context, groupID int64, roleIDs []int64) error
}

// Service implements IAM administration rules.
type Service struct {
	store    Store
	recorder *audit.Recorder
}

// NewService constructs a service.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder}
}

// ListRoles returns a page of roles.
func (s *Service) ListRoles(ctx context.Context, limit, offset int) ([]authz.Role, int, time.Time, error) {
	return s.store.ListRoles(ctx, limit, offset)
}

// GetRole returns one role with its permission codes.
func (s *Service) GetRole(ctx context.Context, id int64) (authz.Role, []string, error) {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return authz.Role{}, nil, err
	}
	codes, err := s.store.PermissionCodesForRole(ctx, id)
	if err != nil {
		return authz.Role{}, nil, err
	}
	return role, codes, nil
}

// CreateRole creates a non-system standard role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (authz.Role, error) {
	if name == "" {
		return authz.Role{}, shared.ValidationErrorf("role name is required")
	}
	role, err := s.store.CreateRole(ctx, authz.Role{
		Name:        name,
		Description: description,
		Kind:        authz.RoleStandard,
	})
	if err != nil {
		return authz.Role{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "ROLE.CREATE", Entity: "role", EntityID: entityID(role.ID),
		Meta: map[string]any{"name": role.Name},
	})
	return role, nil
}

// UpdateRole renames or redescribes a role. System roles are immutable.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (authz.Role, error) {
	current, err := s.store.GetRole(ctx, id)
	if err != nil {
		return authz.Role{}, err
	}
	if current.System {
		return authz.Role{}, shared.ValidationErrorf("system role cannot be modified")
	}
	if name == "" {
		return authz.Role{}, shared.ValidationErrorf("role name is required")
	}
	updated := current
	updated.Name = name
	updated.Description = description
	updated, err = s.store.UpdateRole(ctx, updated)
	if err != nil {
		return authz.Role{}, err
	}
	changes := audit.Diff(
		map[string]any{"name": current.Name, "description": current.Description},
		map[string]any{"name": updated.Name, "description": updated.Description},
		[]string{"name", "description"})
	s.recorder.Observe(ctx, audit.Entry{
		Action: "ROLE.UPDATE", Entity: "role", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, changes),
	})
	return updated, nil
}

// DeleteRole removes a role. System roles are protected.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.System {
		return shared.ValidationErrorf("system role cannot be deleted")
	}
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "ROLE.DELETE", Entity: "role", EntityID: entityID(id),
		Meta: map[string]any{"name": role.Name},
	})
	return nil
}

// ReplaceRolePermissions swaps a role's permission set wholesale. Every
// code must exist in the catalog; unknown codes are reported by name.
func (s *Service) ReplaceRolePermissions(ctx context.Context, roleID int64, codes []string) error {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSuperuser() {
		return shared.ValidationErrorf("superuser role permissions cannot be edited")
	}
	var unknown []string
	for _, code := range codes {
		if !authz.ValidCode(code) {
			unknown = append(unknown, code)
		}
	}
	if len(unknown) > 0 {
		return shared.ValidationErrorf("unknown permission codes: %v", unknown)
	}
	before, err := s.store.PermissionCodesForRole(ctx, roleID)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceRolePermissions(ctx, roleID, codes); err != nil {
		return err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "ROLE.PERM.REPLACE", Entity: "role", EntityID: entityID(roleID),
		Meta: map[string]any{"before": before, "after": codes},
	})
	return nil
}

// ListPermissions returns a page of the stored permission catalog.
func (s *Service) ListPermissions(ctx context.Context, limit, offset int) ([]authz.Permission, int, time.Time, error) {
	return s.store.ListPermissions(ctx, limit, offset)
}

// ListGroups returns a page of groups.
func (s *Service) ListGroups(ctx context.Context, limit, offset int) ([]authz.Group, int, time.Time, error) {
	return s.store.ListGroups(ctx, limit, offset)
}

// GetGroup returns one group.
func (s *Service) GetGroup(ctx context.Context, id int64) (authz.Group, error) {
	return s.store.GetGroup(ctx, id)
}

// CreateGroup creates a group with a validated branch scope.
func (s *Service) CreateGroup(ctx context.Context, name, description string, scope authz.BranchScope) (authz.Group, error) {
	if name == "" {
		return authz.Group{}, shared.ValidationErrorf("group name is required")
	}
	if err := validateBranchScope(scope); err != nil {
		return authz.Group{}, err
	}
	group, err := s.store.CreateGroup(ctx, authz.Group{Name: name, Description: description, BranchScope: scope})
	if err != nil {
		return authz.Group{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "GROUP.CREATE", Entity: "group", EntityID: entityID(group.ID),
		Meta: map[string]any{"name": group.Name, "branch_scope": scope.Allow},
	})
	return group, nil
}

// UpdateGroup updates a group's name, description and branch scope.
func (s *Service) UpdateGroup(ctx context.Context, id int64, name, description string, scope authz.BranchScope) (authz.Group, error) {
	current, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return authz.Group{}, err
	}
	if name == "" {
		return authz.Group{}, shared.ValidationErrorf("group name is required")
	}
	if err := validateBranchScope(scope); err != nil {
		return authz.Group{}, err
	}
	updated := current
	updated.Name = name
	updated.Description = description
	updated.BranchScope = scope
	updated, err = s.store.UpdateGroup(ctx, updated)
	if err != nil {
		return authz.Group{}, err
	}
	changes := audit.Diff(
		map[string]any{"name": current.Name, "branch_scope": fmt.Sprintf("%v", current.BranchScope.Allow)},
		map[string]any{"name": updated.Name, "branch_scope": fmt.Sprintf("%v", updated.BranchScope.Allow)},
		[]string{"name", "branch_scope"})
	s.recorder.Observe(ctx, audit.Entry{
		Action: "GROUP.UPDATE", Entity: "group", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, changes),
	})
	return updated, nil
}

// DeleteGroup removes a group.
func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	group, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "GROUP.DELETE", Entity: "group", EntityID: entityID(id),
		Meta: map[string]any{"name": group.Name},
	})
	return nil
}

// ReplaceGroupRoles swaps the roles a group grants.
func (s *Service) ReplaceGroupRoles(ctx context.Context, groupID int64, roleIDs []int64) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx AssignmentTx) error {
		missing, err := tx.MissingRoleIDs(ctx, roleIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return shared.ValidationErrorf("unknown role ids: %v", missing)
		}
		return tx.SetGroupRoles(ctx, groupID, roleIDs)
	})
	if err != nil {
		return err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "GROUP.ROLES.SET", Entity: "group", EntityID: entityID(groupID),
		Meta: map[string]any{"role_ids": roleIDs},
	})
	return nil
}

// ListUsers returns a page of accounts.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]UserSummary, int, time.Time, error) {
	return s.store.ListUsers(ctx, limit, offset)
}

// GetUser returns one account.
func (s *Service) GetUser(ctx context.Context, id int64) (UserSummary, error) {
	return s.store.GetUser(ctx, id)
}

// SetUserRoles replaces a user's direct roles. The whole change runs in one
// transaction with the superuser holder count so the system can never be
// left without a superuser.
func (s *Service) SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	var before []int64
	err := s.store.InTx(ctx, func(tx AssignmentTx) error {
		exists, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		missing, err := tx.MissingRoleIDs(ctx, roleIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return shared.ValidationErrorf("unknown role ids: %v", missing)
		}
		before, err = tx.UserRoleIDs(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.assertNotLastSuperuser(ctx, tx, userID, roleIDs, nil); err != nil {
			return err
		}
		return tx.SetUserRoles(ctx, userID, roleIDs)
	})
	if err != nil {
		return err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "USER.ROLES.SET", Entity: "user", EntityID: entityID(userID),
		Meta: map[string]any{"before": before, "after": roleIDs},
	})
	return nil
}

// SetUserGroups replaces a user's group memberships under the same
// last-superuser protection.
func (s *Service) SetUserGroups(ctx context.Context, userID int64, groupIDs []int64) error {
	var before []int64
	err := s.store.InTx(ctx, func(tx AssignmentTx) error {
		exists, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		missing, err := tx.MissingGroupIDs(ctx, groupIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return shared.ValidationErrorf("unknown group ids: %v", missing)
		}
		before, err = tx.UserGroupIDs(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.assertNotLastSuperuser(ctx, tx, userID, nil, groupIDs); err != nil {
			return err
		}
		return tx.SetUserGroups(ctx, userID, groupIDs)
	})
	if err != nil {
		return err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "USER.GROUPS.SET", Entity: "user", EntityID: entityID(userID),
		Meta: map[string]any{"before": before, "after": groupIDs},
	})
	return nil
}

// assertNotLastSuperuser rejects a reassignment that would take superuser
// access away from its last remaining holder. newRoles / newGroups are nil
// when that side of the assignment is not changing.
func (s *Service) assertNotLastSuperuser(ctx context.Context, tx AssignmentTx, userID int64, newRoles, newGroups []int64) error {
	if newRoles == nil {
		current, err := tx.UserRoleIDs(ctx, userID)
		if err != nil {
			return err
		}
		newRoles = current
	}
	if newGroups == nil {
		current, err := tx.UserGroupIDs(ctx, userID)
		if err != nil {
			return err
		}
		newGroups = current
	}

	currentRoles, err := tx.UserRoleIDs(ctx, userID)
	if err != nil {
		return err
	}
	currentGroups, err := tx.UserGroupIDs(ctx, userID)
	if err != nil {
		return err
	}
	hadDirect, err := tx.RolesGrantSuperuser(ctx, currentRoles)
	if err != nil {
		return err
	}
	hadViaGroups, err := tx.GroupsGrantSuperuser(ctx, currentGroups)
	if err != nil {
		return err
	}
	if !hadDirect && !hadViaGroups {
		return nil
	}

	willDirect, err := tx.RolesGrantSuperuser(ctx, newRoles)
	if err != nil {
		return err
	}
	willViaGroups, err := tx.GroupsGrantSuperuser(ctx, newGroups)
	if err != nil {
		return err
	}
	if willDirect || willViaGroups {
		return nil
	}

	others, err := tx.SuperuserHoldersExcluding(ctx, userID)
	if err != nil {
		return err
	}
	if others == 0 {
		return shared.ValidationErrorf("cannot remove last superuser role holder")
	}
	return nil
}

func validateBranchScope(scope authz.BranchScope) error {
	for _, id := range scope.Allow {
		if id <= 0 {
			return shared.ValidationErrorf("branch_scope.allow must contain positive branch ids")
		}
	}
	return nil
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
