// Package authz resolves effective permissions and branch scopes for users
// and guards HTTP routes with permission checks.
package authz

import "time"

// RoleKind distinguishes ordinary roles from the superuser role.
type RoleKind string

const (
	// RoleStandard grants exactly the permissions attached to the role.
	RoleStandard RoleKind = "STANDARD"
	// RoleSuperuser grants every permission in the catalog regardless of
	// what is attached to the role.
	RoleSuperuser RoleKind = "SUPERUSER"
)

// Role is a named bundle of permissions assignable to users directly or
// through groups.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Kind        RoleKind  `json:"kind"`
	System      bool      `json:"system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsSuperuser reports whether the role grants the full catalog.
func (r Role) IsSuperuser() bool {
	return r.Kind == RoleSuperuser
}

// Permission is an atomic capability identified by a SERVICE.ACTION code.
type Permission struct {
	ID      int64  `json:"id"`
	Code    string `json:"code"`
	Service string `json:"service"`
	Action  string `json:"action"`
}

// BranchScope restricts a group's members to a set of branches. An empty
// allow list means the scope places no restriction.
type BranchScope struct {
	Allow []int64 `json:"allow"`
}

// Group bundles roles and a branch scope for assignment to users.
type Group struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	BranchScope BranchScope `json:"branch_scope"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Resolution is the flattened authorization state of one user, computed at
// login and carried in the token for the rest of the session.
type Resolution struct {
	RoleIDs   []int64
	GroupIDs  []int64
	Perms     []string
	BranchIDs []int64
}
