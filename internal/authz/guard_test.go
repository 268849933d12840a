package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func guardedRequest(t *testing.T, mw func(http.Handler) http.Handler, claims *shared.Claims) *httptest.ResponseRecorder {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	r := httptest.NewRequest("GET", "/orders", nil)
	if claims != nil {
		r = r.WithContext(shared.ContextWithClaims(r.Context(), claims))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec
}

func TestGuardRequire(t *testing.T) {
	guard := Guard{}

	rec := guardedRequest(t, guard.Require("SALES.READ"), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "no claims in context")

	rec = guardedRequest(t, guard.Require("SALES.READ"), &shared.Claims{UserID: 7, Perms: []string{"PRINT.READ"}})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = guardedRequest(t, guard.Require("SALES.READ", "SALES.UPDATE"), &shared.Claims{UserID: 7, Perms: []string{"SALES.READ"}})
	require.Equal(t, http.StatusForbidden, rec.Code, "all listed codes required")

	rec = guardedRequest(t, guard.Require("SALES.READ", "SALES.UPDATE"), &shared.Claims{UserID: 7, Perms: []string{"SALES.READ", "SALES.UPDATE"}})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardRequireAny(t *testing.T) {
	guard := Guard{}

	rec := guardedRequest(t, guard.RequireAny("SALES.APPROVE", "ADMIN.SETTINGS.MANAGE"), &shared.Claims{UserID: 7, Perms: []string{"ADMIN.SETTINGS.MANAGE"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = guardedRequest(t, guard.RequireAny("SALES.APPROVE", "ADMIN.SETTINGS.MANAGE"), &shared.Claims{UserID: 7, Perms: []string{"SALES.READ"}})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAssertBranchAccess(t *testing.T) {
	require.NoError(t, AssertBranchAccess(&shared.Claims{UserID: 7}, 3), "empty scope is unrestricted")
	require.NoError(t, AssertBranchAccess(&shared.Claims{UserID: 7, BranchIDs: []int64{2, 3}}, 3))
	require.ErrorIs(t, AssertBranchAccess(&shared.Claims{UserID: 7, BranchIDs: []int64{2}}, 3), shared.ErrBranchDenied)
	require.ErrorIs(t, AssertBranchAccess(nil, 3), shared.ErrUnauthorized)
}

func TestBranchFilter(t *testing.T) {
	unrestricted := &shared.Claims{UserID: 7}
	scoped := &shared.Claims{UserID: 7, BranchIDs: []int64{2, 3}}

	require.Nil(t, BranchFilter(unrestricted, 0))
	require.Equal(t, []int64{5}, BranchFilter(unrestricted, 5))
	require.Equal(t, []int64{2, 3}, BranchFilter(scoped, 0))
	require.Equal(t, []int64{3}, BranchFilter(scoped, 3))
	require.Equal(t, []int64{-1}, BranchFilter(scoped, 9), "out-of-scope branch matches nothing")
}
