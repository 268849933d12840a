package shared

import "context"

// Claims carries the point-in-time authorization snapshot embedded in an
// access token at login. It is not recomputed per request.
type Claims struct {
	UserID    int64
	RoleIDs   []int64
	GroupIDs  []int64
	Perms     []string
	BranchIDs []int64
	Locale    string
}

// HasPerm reports whether the permission code is present in the snapshot.
func (c *Claims) HasPerm(code string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Perms {
		if p == code {
			return true
		}
	}
	return false
}

// HasAllPerms reports whether every code is present in the snapshot.
func (c *Claims) HasAllPerms(codes ...string) bool {
	for _, code := range codes {
		if !c.HasPerm(code) {
			return false
		}
	}
	return true
}

// HasAnyPerm reports whether at least one code is present in the snapshot.
func (c *Claims) HasAnyPerm(codes ...string) bool {
	for _, code := range codes {
		if c.HasPerm(code) {
			return true
		}
	}
	return false
}

type claimsContextKey struct{}

// ContextWithClaims stores the caller's claims in context.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the caller's claims from context.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}
