package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestMiddlewarePlacesClaimsInContext(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(User{ID: 7}, shared.Claims{UserID: 7, Perms: []string{"SALES.READ"}}, time.Now())
	require.NoError(t, err)

	var seen *shared.Claims
	handler := Middleware{Issuer: issuer}.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("GET", "/orders", nil)
	r.Header.Set("Authorization", "Bearer "+token.Signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, int64(7), seen.UserID)
	require.Equal(t, []string{"SALES.READ"}, seen.Perms)
}

func TestMiddlewareNoTokenPassesThroughAnonymously(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	var seen *shared.Claims
	handler := Middleware{Issuer: issuer}.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, seen)
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	handler := Middleware{Issuer: issuer}.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest("GET", "/orders", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsRevokedToken(t *testing.T) {
	mr := miniredis.RunT(t)
	revoked := NewRevocationList(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	issuer := NewIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(User{ID: 7}, shared.Claims{UserID: 7}, time.Now())
	require.NoError(t, err)
	require.NoError(t, revoked.Revoke(t.Context(), token.JTI, token.ExpiresAt))

	handler := Middleware{Issuer: issuer, Revoked: revoked}.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest("GET", "/orders", nil)
	r.Header.Set("Authorization", "Bearer "+token.Signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
