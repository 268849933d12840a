package authz

import (
	"context"
	"sort"
)

// Store is the persistence surface the resolver reads from.
type Store interface {
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)
	GroupsForUser(ctx context.Context, userID int64) ([]Group, error)
	RolesForGroups(ctx context.Context, groupIDs []int64) ([]Role, error)
	PermissionCodesForRoles(ctx context.Context, roleIDs []int64) ([]string, error)
	AllPermissionCodes(ctx context.Context) ([]string, error)
}

// Resolver flattens role/group assignments into an effective permission set
// and branch scope. It runs once per login; the result travels inside the
// session token.
type Resolver struct {
	store Store
}

// NewResolver constructs a resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve computes the effective authorization state for a user: roles held
// directly plus roles inherited through groups, the union of their
// permission codes, and the branch scope. A user holding any superuser role
// receives every stored permission code. An unknown user resolves to empty
// sets without error.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (Resolution, error) {
	direct, err := r.store.RolesForUser(ctx, userID)
	if err != nil {
		return Resolution{}, err
	}
	groups, err := r.store.GroupsForUser(ctx, userID)
	if err != nil {
		return Resolution{}, err
	}

	groupIDs := make([]int64, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}
	inherited, err := r.store.RolesForGroups(ctx, groupIDs)
	if err != nil {
		return Resolution{}, err
	}

	roleSet := make(map[int64]Role, len(direct)+len(inherited))
	for _, role := range direct {
		roleSet[role.ID] = role
	}
	for _, role := range inherited {
		roleSet[role.ID] = role
	}

	roleIDs := make([]int64, 0, len(roleSet))
	superuser := false
	for id, role := range roleSet {
		roleIDs = append(roleIDs, id)
		if role.IsSuperuser() {
			superuser = true
		}
	}
	sort.Slice(roleIDs, func(i, j int) bool { return roleIDs[i] < roleIDs[j] })

	var codes []string
	if superuser {
		codes, err = r.store.AllPermissionCodes(ctx)
	} else {
		codes, err = r.store.PermissionCodesForRoles(ctx, roleIDs)
	}
	if err != nil {
		return Resolution{}, err
	}
	codes = dedupeSorted(codes)

	return Resolution{
		RoleIDs:   roleIDs,
		GroupIDs:  groupIDs,
		Perms:     codes,
		BranchIDs: unionBranchScopes(groups),
	}, nil
}

// BranchScope returns the union of the allow lists of the user's groups.
// An empty result means the user is unrestricted.
func (r *Resolver) BranchScope(ctx context.Context, userID int64) ([]int64, error) {
	groups, err := r.store.GroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return unionBranchScopes(groups), nil
}

func unionBranchScopes(groups []Group) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, g := range groups {
		for _, id := range g.BranchScope.Allow {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func dedupeSorted(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
