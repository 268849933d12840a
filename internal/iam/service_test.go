package iam

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// memStore is an in-memory Store for service tests. Its InTx runs the
// callback against the same state; atomicity is not under test here, the
// invariant logic is.
type memStore struct {
	roles      map[int64]authz.Role
	groups     map[int64]authz.Group
	users      map[int64]UserSummary
	rolePerms  map[int64][]string
	userRoles  map[int64][]int64
	userGroups map[int64][]int64
	groupRoles map[int64][]int64
}

func newMemStore() *memStore {
	return &memStore{
		roles:      map[int64]authz.Role{},
		groups:     map[int64]authz.Group{},
		users:      map[int64]UserSummary{},
		rolePerms:  map[int64][]string{},
		userRoles:  map[int64][]int64{},
		userGroups: map[int64][]int64{},
		groupRoles: map[int64][]int64{},
	}
}

func (m *memStore) ListRoles(_ context.Context, _, _ int) ([]authz.Role, int, time.Time, error) {
	return nil, 0, time.Time{}, nil
}

func (m *memStore) GetRole(_ context.Context, id int64) (authz.Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return authz.Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (m *memStore) CreateRole(_ context.Context, role authz.Role) (authz.Role, error) {
	for _, existing := range m.roles {
		if existing.Name == role.Name {
			return authz.Role{}, shared.ErrDuplicate
		}
	}
	role.ID = int64(len(m.roles) + 1)
	m.roles[role.ID] = role
	return role, nil
}

func (m *memStore) UpdateRole(_ context.Context, role authz.Role) (authz.Role, error) {
	m.roles[role.ID] = role
	return role, nil
}

func (m *memStore) DeleteRole(_ context.Context, id int64) error {
	delete(m.roles, id)
	return nil
}

func (m *memStore) PermissionCodesForRole(_ context.Context, id int64) ([]string, error) {
	return m.rolePerms[id], nil
}

func (m *memStore) ReplaceRolePermissions(_ context.Context, roleID int64, codes []string) error {
	m.rolePerms[roleID] = codes
	return nil
}

func (m *memStore) ListPermissions(_ context.Context, _, _ int) ([]authz.Permission, int, time.Time, error) {
	return nil, 0, time.Time{}, nil
}

func (m *memStore) ListGroups(_ context.Context, _, _ int) ([]authz.Group, int, time.Time, error) {
	return nil, 0, time.Time{}, nil
}

func (m *memStore) GetGroup(_ context.Context, id int64) (authz.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return authz.Group{}, shared.ErrNotFound
	}
	return group, nil
}

func (m *memStore) CreateGroup(_ context.Context, group authz.Group) (authz.Group, error) {
	group.ID = int64(len(m.groups) + 1)
	m.groups[group.ID] = group
	return group, nil
}

func (m *memStore) UpdateGroup(_ context.Context, group authz.Group) (authz.Group, error) {
	m.groups[group.ID] = group
	return group, nil
}

func (m *memStore) DeleteGroup(_ context.Context, id int64) error {
	delete(m.groups, id)
	return nil
}

func (m *memStore) ListUsers(_ context.Context, _, _ int) ([]UserSummary, int, time.Time, error) {
	return nil, 0, time.Time{}, nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (UserSummary, error) {
	user, ok := m.users[id]
	if !ok {
		return UserSummary{}, shared.ErrNotFound
	}
	return user, nil
}

func (m *memStore) InTx(_ context.Context, fn func(AssignmentTx) error) error {
	return fn(memTx{store: m})
}

type memTx struct {
	store *memStore
}

func (t memTx) UserExists(_ context.Context, userID int64) (bool, error) {
	_, ok := t.store.users[userID]
	return ok, nil
}

func (t memTx) MissingRoleIDs(_ context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if _, ok := t.store.roles[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (t memTx) MissingGroupIDs(_ context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if _, ok := t.store.groups[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (t memTx) UserRoleIDs(_ context.Context, userID int64) ([]int64, error) {
	return t.store.userRoles[userID], nil
}

func (t memTx) UserGroupIDs(_ context.Context, userID int64) ([]int64, error) {
	return t.store.userGroups[userID], nil
}

func (t memTx) RolesGrantSuperuser(_ context.Context, roleIDs []int64) (bool, error) {
	for _, id := range roleIDs {
		if t.store.roles[id].Kind == authz.RoleSuperuser {
			return true, nil
		}
	}
	return false, nil
}

func (t memTx) GroupsGrantSuperuser(_ context.Context, groupIDs []int64) (bool, error) {
	for _, gid := range groupIDs {
		ok, _ := t.RolesGrantSuperuser(nil, t.store.groupRoles[gid])
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (t memTx) SuperuserHoldersExcluding(_ context.Context, userID int64) (int, error) {
	count := 0
	for uid := range t.store.users {
		if uid == userID {
			continue
		}
		direct, _ := t.RolesGrantSuperuser(nil, t.store.userRoles[uid])
		viaGroups, _ := t.GroupsGrantSuperuser(nil, t.store.userGroups[uid])
		if direct || viaGroups {
			count++
		}
	}
	return count, nil
}

func (t memTx) SetUserRoles(_ context.Context, userID int64, roleIDs []int64) error {
	t.store.userRoles[userID] = roleIDs
	return nil
}

func (t memTx) SetUserGroups(_ context.Context, userID int64, groupIDs []int64) error {
	t.store.userGroups[userID] = groupIDs
	return nil
}

func (t memTx) SetGroupRoles(_ context.Context, groupID int64, roleIDs []int64) error {
	t.store.groupRoles[groupID] = roleIDs
	return nil
}

type nullWriter struct{}

func (nullWriter) Insert(_ context.Context, _ audit.Entry) error { return nil }

func newTestService(store Store) *Service {
	return NewService(store, audit.NewRecorder(nullWriter{}, slog.Default()))
}

// fixtureStore seeds one superuser role (id 1), one standard role (id 2),
// and users 10 (owner) and 11 (seller).
func fixtureStore() *memStore {
	store := newMemStore()
	store.roles[1] = authz.Role{ID: 1, Name: "Owner", Kind: authz.RoleSuperuser, System: true}
	store.roles[2] = authz.Role{ID: 2, Name: "Seller", Kind: authz.RoleStandard}
	store.users[10] = UserSummary{ID: 10, Username: "owner"}
	store.users[11] = UserSummary{ID: 11, Username: "seller"}
	store.userRoles[10] = []int64{1}
	store.userRoles[11] = []int64{2}
	return store
}

func TestSetUserRolesRejectsLastSuperuserRemoval(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store)

	err := svc.SetUserRoles(context.Background(), 10, []int64{2})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "last superuser")
	require.Equal(t, []int64{1}, store.userRoles[10], "assignment must be untouched")
}

func TestSetUserRolesAllowsRemovalWhenAnotherHolderExists(t *testing.T) {
	store := fixtureStore()
	store.userRoles[11] = []int64{1, 2}
	svc := newTestService(store)

	require.NoError(t, svc.SetUserRoles(context.Background(), 10, []int64{2}))
	require.Equal(t, []int64{2}, store.userRoles[10])
}

func TestSetUserRolesCountsGroupGrantedHolders(t *testing.T) {
	store := fixtureStore()
	store.groups[5] = authz.Group{ID: 5, Name: "Admins"}
	store.groupRoles[5] = []int64{1}
	store.userGroups[11] = []int64{5}
	svc := newTestService(store)

	// User 11 holds superuser through the Admins group, so stripping user
	// 10's direct grant is safe.
	require.NoError(t, svc.SetUserRoles(context.Background(), 10, []int64{2}))
}

func TestSetUserRolesKeepingSuperuserPasses(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store)
	require.NoError(t, svc.SetUserRoles(context.Background(), 10, []int64{1, 2}))
}

func TestSetUserRolesUnknownIDs(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store)

	err := svc.SetUserRoles(context.Background(), 11, []int64{2, 99})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "99")

	err = svc.SetUserRoles(context.Background(), 404, []int64{2})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSetUserGroupsRejectsLastSuperuserRemoval(t *testing.T) {
	store := fixtureStore()
	// Move user 10's superuser grant into a group membership.
	store.userRoles[10] = nil
	store.groups[5] = authz.Group{ID: 5, Name: "Admins"}
	store.groupRoles[5] = []int64{1}
	store.userGroups[10] = []int64{5}
	svc := newTestService(store)

	err := svc.SetUserGroups(context.Background(), 10, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, []int64{5}, store.userGroups[10])
}

func TestSetUserGroupsAllowedForNonSuperuser(t *testing.T) {
	store := fixtureStore()
	store.groups[6] = authz.Group{ID: 6, Name: "Counter", BranchScope: authz.BranchScope{Allow: []int64{2}}}
	svc := newTestService(store)

	require.NoError(t, svc.SetUserGroups(context.Background(), 11, []int64{6}))
	require.Equal(t, []int64{6}, store.userGroups[11])
}

func TestReplaceRolePermissionsRejectsUnknownCodes(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store)

	err := svc.ReplaceRolePermissions(context.Background(), 2, []string{"SALES.READ", "SALES.FLY", "BOGUS.READ"})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "SALES.FLY")
	require.Contains(t, err.Error(), "BOGUS.READ")
	require.Empty(t, store.rolePerms[2])
}

func TestReplaceRolePermissionsAcceptsCatalogCodes(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store)

	codes := []string{"SALES.READ", "PO.VENDOR.READ"}
	require.NoError(t, svc.ReplaceRolePermissions(context.Background(), 2, codes))
	require.Equal(t, codes, store.rolePerms[2])
}

func TestReplaceRolePermissionsProtectsSuperuserRole(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store)

	err := svc.ReplaceRolePermissions(context.Background(), 1, []string{"SALES.READ"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSystemRoleProtection(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store)

	err := svc.DeleteRole(context.Background(), 1)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, store.roles, int64(1))

	_, err = svc.UpdateRole(context.Background(), 1, "Renamed", "")
	require.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.DeleteRole(context.Background(), 2))
}

func TestCreateGroupValidatesBranchScope(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store)

	_, err := svc.CreateGroup(context.Background(), "Counter", "", authz.BranchScope{Allow: []int64{0}})
	require.ErrorIs(t, err, shared.ErrValidation)

	group, err := svc.CreateGroup(context.Background(), "Counter", "", authz.BranchScope{Allow: []int64{2, 3}})
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, group.BranchScope.Allow)
}
