package iam

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence for IAM administration.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, description, kind, system, created_at, updated_at`

// ListRoles returns a page of roles ordered by id.
func (r *Repository) ListRoles(ctx context.Context, limit, offset int) ([]authz.Role, int, time.Time, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()
	var roles []authz.Role
	var latest time.Time
	for rows.Next() {
		var role authz.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Kind, &role.System, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, 0, time.Time{}, err
		}
		if role.UpdatedAt.After(latest) {
			latest = role.UpdatedAt
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return roles, total, latest, nil
}

// GetRole returns one role.
func (r *Repository) GetRole(ctx context.Context, id int64) (authz.Role, error) {
	var role authz.Role
	err := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.Kind, &role.System, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Role{}, shared.ErrNotFound
	}
	if err != nil {
		return authz.Role{}, err
	}
	return role, nil
}

// CreateRole inserts a role. A name collision surfaces as ErrDuplicate.
func (r *Repository) CreateRole(ctx context.Context, role authz.Role) (authz.Role, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, kind, system, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, NOW(), NOW())
		RETURNING `+roleColumns,
		role.Name, role.Description, role.Kind).
		Scan(&role.ID, &role.Name, &role.Description, &role.Kind, &role.System, &role.CreatedAt, &role.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return authz.Role{}, shared.ErrDuplicate
	}
	if err != nil {
		return authz.Role{}, err
	}
	return role, nil
}

// UpdateRole updates a role's name and description.
func (r *Repository) UpdateRole(ctx context.Context, role authz.Role) (authz.Role, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+roleColumns,
		role.ID, role.Name, role.Description).
		Scan(&role.ID, &role.Name, &role.Description, &role.Kind, &role.System, &role.CreatedAt, &role.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return authz.Role{}, shared.ErrDuplicate
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Role{}, shared.ErrNotFound
	}
	if err != nil {
		return authz.Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role and its assignments.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PermissionCodesForRole returns the codes currently attached to a role.
func (r *Repository) PermissionCodesForRole(ctx context.Context, id int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.code FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.code`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ReplaceRolePermissions swaps a role's permission set atomically.
func (r *Repository) ReplaceRolePermissions(ctx context.Context, roleID int64, codes []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, p.id FROM permissions p WHERE p.code = ANY($2)`, roleID, codes)
		return err
	})
}

// ListPermissions returns a page of the stored catalog ordered by code.
func (r *Repository) ListPermissions(ctx context.Context, limit, offset int) ([]authz.Permission, int, time.Time, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM permissions`).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, service, action FROM permissions ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()
	var perms []authz.Permission
	for rows.Next() {
		var p authz.Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Service, &p.Action); err != nil {
			return nil, 0, time.Time{}, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	// The catalog is seeded, not edited, so it has no update timestamps.
	return perms, total, time.Time{}, nil
}

const groupColumns = `id, name, description, branch_scope, created_at, updated_at`

// ListGroups returns a page of groups ordered by id.
func (r *Repository) ListGroups(ctx context.Context, limit, offset int) ([]authz.Group, int, time.Time, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM groups`).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()
	var groups []authz.Group
	var latest time.Time
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, 0, time.Time{}, err
		}
		if group.UpdatedAt.After(latest) {
			latest = group.UpdatedAt
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return groups, total, latest, nil
}

// GetGroup returns one group.
func (r *Repository) GetGroup(ctx context.Context, id int64) (authz.Group, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	group, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Group{}, shared.ErrNotFound
	}
	if err != nil {
		return authz.Group{}, err
	}
	return group, nil
}

// CreateGroup inserts a group.
func (r *Repository) CreateGroup(ctx context.Context, group authz.Group) (authz.Group, error) {
	scope, err := json.Marshal(group.BranchScope)
	if err != nil {
		return authz.Group{}, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO groups (name, description, branch_scope, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING `+groupColumns,
		group.Name, group.Description, scope)
	created, err := scanGroup(row)
	if db.IsUniqueViolation(err) {
		return authz.Group{}, shared.ErrDuplicate
	}
	if err != nil {
		return authz.Group{}, err
	}
	return created, nil
}

// UpdateGroup updates a group's name, description and branch scope.
func (r *Repository) UpdateGroup(ctx context.Context, group authz.Group) (authz.Group, error) {
	scope, err := json.Marshal(group.BranchScope)
	if err != nil {
		return authz.Group{}, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE groups SET name = $2, description = $3, branch_scope = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+groupColumns,
		group.ID, group.Name, group.Description, scope)
	updated, err := scanGroup(row)
	if db.IsUniqueViolation(err) {
		return authz.Group{}, shared.ErrDuplicate
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Group{}, shared.ErrNotFound
	}
	if err != nil {
		return authz.Group{}, err
	}
	return updated, nil
}

// DeleteGroup removes a group and its memberships.
func (r *Repository) DeleteGroup(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListUsers returns a page of accounts with their assignment ids.
func (r *Repository) ListUsers(ctx context.Context, limit, offset int) ([]UserSummary, int, time.Time, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.email, u.is_active, u.created_at, u.updated_at,
			COALESCE((SELECT ARRAY_AGG(ur.role_id ORDER BY ur.role_id) FROM user_roles ur WHERE ur.user_id = u.id), '{}'),
			COALESCE((SELECT ARRAY_AGG(ug.group_id ORDER BY ug.group_id) FROM user_groups ug WHERE ug.user_id = u.id), '{}')
		FROM users u
		ORDER BY u.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()
	var users []UserSummary
	var latest time.Time
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.RoleIDs, &u.GroupIDs); err != nil {
			return nil, 0, time.Time{}, err
		}
		if u.UpdatedAt.After(latest) {
			latest = u.UpdatedAt
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return users, total, latest, nil
}

// GetUser returns one account with its assignment ids.
func (r *Repository) GetUser(ctx context.Context, id int64) (UserSummary, error) {
	var u UserSummary
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.username, u.email, u.is_active, u.created_at, u.updated_at,
			COALESCE((SELECT ARRAY_AGG(ur.role_id ORDER BY ur.role_id) FROM user_roles ur WHERE ur.user_id = u.id), '{}'),
			COALESCE((SELECT ARRAY_AGG(ug.group_id ORDER BY ug.group_id) FROM user_groups ug WHERE ug.user_id = u.id), '{}')
		FROM users u WHERE u.id = $1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.RoleIDs, &u.GroupIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserSummary{}, shared.ErrNotFound
	}
	if err != nil {
		return UserSummary{}, err
	}
	return u, nil
}

// InTx runs fn against a transactional assignment store.
func (r *Repository) InTx(ctx context.Context, fn func(AssignmentTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(assignmentTx{tx: tx})
	})
}

type assignmentTx struct {
	tx pgx.Tx
}

func (a assignmentTx) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := a.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (a assignmentTx) MissingRoleIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return a.missingIDs(ctx, `SELECT id FROM roles WHERE id = ANY($1)`, ids)
}

func (a assignmentTx) MissingGroupIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return a.missingIDs(ctx, `SELECT id FROM groups WHERE id = ANY($1)`, ids)
}

func (a assignmentTx) missingIDs(ctx context.Context, query string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := a.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (a assignmentTx) UserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	return a.scanIDs(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY role_id`, userID)
}

func (a assignmentTx) UserGroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	return a.scanIDs(ctx, `SELECT group_id FROM user_groups WHERE user_id = $1 ORDER BY group_id`, userID)
}

func (a assignmentTx) scanIDs(ctx context.Context, query string, arg any) ([]int64, error) {
	rows, err := a.tx.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (a assignmentTx) RolesGrantSuperuser(ctx context.Context, roleIDs []int64) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}
	var grants bool
	err := a.tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM roles WHERE id = ANY($1) AND kind = $2)`,
		roleIDs, authz.RoleSuperuser).Scan(&grants)
	return grants, err
}

func (a assignmentTx) GroupsGrantSuperuser(ctx context.Context, groupIDs []int64) (bool, error) {
	if len(groupIDs) == 0 {
		return false, nil
	}
	var grants bool
	err := a.tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM group_roles gr
			JOIN roles r ON r.id = gr.role_id
			WHERE gr.group_id = ANY($1) AND r.kind = $2)`,
		groupIDs, authz.RoleSuperuser).Scan(&grants)
	return grants, err
}

func (a assignmentTx) SuperuserHoldersExcluding(ctx context.Context, userID int64) (int, error) {
	// Lock the superuser role rows first. Snapshot isolation alone admits
	// write skew: two concurrent reassignments could each strip a different
	// holder while counting the other as remaining.
	if _, err := a.tx.Exec(ctx, `
		SELECT id FROM roles WHERE kind = $1 FOR UPDATE`,
		authz.RoleSuperuser); err != nil {
		return 0, err
	}
	var count int
	err := a.tx.QueryRow(ctx, `
		SELECT COUNT(DISTINCT holder.user_id) FROM (
			SELECT ur.user_id FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id AND r.kind = $2
			UNION
			SELECT ug.user_id FROM user_groups ug
			JOIN group_roles gr ON gr.group_id = ug.group_id
			JOIN roles r ON r.id = gr.role_id AND r.kind = $2
		) holder WHERE holder.user_id <> $1`,
		userID, authz.RoleSuperuser).Scan(&count)
	return count, err
}

func (a assignmentTx) SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if _, err := a.tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := a.tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, UNNEST($2::BIGINT[])`, userID, roleIDs)
	return err
}

func (a assignmentTx) SetUserGroups(ctx context.Context, userID int64, groupIDs []int64) error {
	if _, err := a.tx.Exec(ctx, `DELETE FROM user_groups WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(groupIDs) == 0 {
		return nil
	}
	_, err := a.tx.Exec(ctx, `
		INSERT INTO user_groups (user_id, group_id)
		SELECT $1, UNNEST($2::BIGINT[])`, userID, groupIDs)
	return err
}

func (a assignmentTx) SetGroupRoles(ctx context.Context, groupID int64, roleIDs []int64) error {
	if _, err := a.tx.Exec(ctx, `DELETE FROM group_roles WHERE group_id = $1`, groupID); err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := a.tx.Exec(ctx, `
		INSERT INTO group_roles (group_id, role_id)
		SELECT $1, UNNEST($2::BIGINT[])`, groupID, roleIDs)
	return err
}

func scanGroup(row pgx.Row) (authz.Group, error) {
	var g authz.Group
	var scope []byte
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &scope, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return authz.Group{}, err
	}
	if len(scope) > 0 {
		if err := json.Unmarshal(scope, &g.BranchScope); err != nil {
			return authz.Group{}, err
		}
	}
	return g, nil
}
