package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubUsers struct {
	byEmail map[string]User
	byID    map[int64]User
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) FindByID(_ context.Context, id int64) (User, error) {
	u, ok := s.byID[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

type stubResolver struct {
	res authz.Resolution
}

func (s *stubResolver) Resolve(_ context.Context, _ int64) (authz.Resolution, error) {
	return s.res, nil
}

func testUser(t *testing.T, password string) User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return User{ID: 7, Username: "ada", Email: "ada@example.com", PasswordHash: string(hash), IsActive: true, Locale: "en"}
}

func newTestService(t *testing.T, user User, res authz.Resolution) *Service {
	t.Helper()
	users := &stubUsers{
		byEmail: map[string]User{user.Email: user},
		byID:    map[int64]User{user.ID: user},
	}
	return NewService(users, &stubResolver{res: res}, NewIssuer("test-secret", time.Hour), nil)
}

func TestLoginIssuesTokenWithResolvedClaims(t *testing.T) {
	user := testUser(t, "hunter22")
	res := authz.Resolution{
		RoleIDs:   []int64{1},
		GroupIDs:  []int64{10},
		Perms:     []string{"SALES.READ", "SALES.CREATE"},
		BranchIDs: []int64{2, 3},
	}
	svc := newTestService(t, user, res)

	sess, err := svc.Login(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token.Signed)
	require.NotEmpty(t, sess.Token.JTI)
	require.Equal(t, []string{"SALES.READ", "SALES.CREATE"}, sess.Claims.Perms)
	require.Equal(t, []int64{2, 3}, sess.Claims.BranchIDs)

	claims, token, err := NewIssuer("test-secret", time.Hour).Validate(sess.Token.Signed)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, sess.Claims.Perms, claims.Perms)
	require.Equal(t, sess.Token.JTI, token.JTI)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, testUser(t, "hunter22"), authz.Resolution{})

	_, err := svc.Login(context.Background(), "ada@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials, "unknown user reads the same as wrong password")
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	user := testUser(t, "hunter22")
	user.IsActive = false
	svc := newTestService(t, user, authz.Resolution{})

	_, err := svc.Login(context.Background(), "ada@example.com", "hunter22")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(User{ID: 7}, shared.Claims{UserID: 7}, time.Now())
	require.NoError(t, err)

	_, _, err = NewIssuer("other-secret", time.Hour).Validate(token.Signed)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, _, err = issuer.Validate(token.Signed + "x")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute)
	token, err := issuer.Issue(User{ID: 7}, shared.Claims{UserID: 7}, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, _, err = issuer.Validate(token.Signed)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestRevocationList(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	list := NewRevocationList(client)
	ctx := context.Background()

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	// The denylist entry lapses with the token's own lifetime.
	mr.FastForward(2 * time.Hour)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	list := NewRevocationList(client)

	require.NoError(t, list.Revoke(context.Background(), "jti-2", time.Now().Add(-time.Minute)))
	revoked, err := list.IsRevoked(context.Background(), "jti-2")
	require.NoError(t, err)
	require.False(t, revoked)
}
