package authz

import (
	"log/slog"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Guard enforces permission requirements on HTTP routes using the claims
// the auth middleware placed in the request context.
type Guard struct {
	Logger *slog.Logger
}

// Require ensures the caller holds every listed permission code. Requests
// with no claims in context get 401; authenticated callers missing a code
// get 403 before the handler runs.
func (g Guard) Require(codes ...string) func(http.Handler) http.Handler {
	return g.check(func(c *shared.Claims) bool { return c.HasAllPerms(codes...) }, codes)
}

// RequireAny ensures the caller holds at least one of the listed codes.
func (g Guard) RequireAny(codes ...string) func(http.Handler) http.Handler {
	return g.check(func(c *shared.Claims) bool { return c.HasAnyPerm(codes...) }, codes)
}

func (g Guard) check(allowed func(*shared.Claims) bool, codes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := shared.ClaimsFromContext(r.Context())
			if claims == nil {
				httpx.RespondError(w, r, shared.ErrUnauthorized)
				return
			}
			if !allowed(claims) {
				if g.Logger != nil {
					g.Logger.Info("permission denied",
						slog.Int64("user_id", claims.UserID),
						slog.Any("required", codes),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, r, shared.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AssertBranchAccess checks a specific branch against the caller's scope.
// An empty scope is unrestricted.
func AssertBranchAccess(claims *shared.Claims, branchID int64) error {
	if claims == nil {
		return shared.ErrUnauthorized
	}
	if len(claims.BranchIDs) == 0 {
		return nil
	}
	for _, id := range claims.BranchIDs {
		if id == branchID {
			return nil
		}
	}
	return shared.ErrBranchDenied
}

// BranchFilter returns the branch ids a list query must be restricted to.
// A nil result means no restriction. When the caller asks for one explicit
// branch, the filter narrows to that branch if in scope and to an
// impossible match otherwise, so out-of-scope requests read as empty
// rather than erroring.
func BranchFilter(claims *shared.Claims, requested int64) []int64 {
	scope := claims.BranchIDs
	if requested == 0 {
		return scope
	}
	if len(scope) == 0 {
		return []int64{requested}
	}
	for _, id := range scope {
		if id == requested {
			return []int64{requested}
		}
	}
	return []int64{-1}
}
