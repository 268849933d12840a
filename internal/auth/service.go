package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// UserStore is the account lookup surface. Satisfied by *Repository.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
}

// PermissionResolver flattens a user's authorization state at login.
type PermissionResolver interface {
	Resolve(ctx context.Context, userID int64) (authz.Resolution, error)
}

// Service authenticates users and produces sessions.
type Service struct {
	users    UserStore
	resolver PermissionResolver
	issuer   *Issuer
	revoked  *RevocationList
	now      func() time.Time
}

// NewService constructs an auth service.
func NewService(users UserStore, resolver PermissionResolver, issuer *Issuer, revoked *RevocationList) *Service {
	return &Service{users: users, resolver: resolver, issuer: issuer, revoked: revoked, now: time.Now}
}

// Session is the result of a successful login.
type Session struct {
	Token  Token
	User   User
	Claims shared.Claims
}

// Login verifies credentials, resolves the user's effective permissions and
// branch scope, and issues a token embedding them. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Session{}, shared.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, shared.ErrInvalidCredentials
	}

	res, err := s.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	claims := shared.Claims{
		UserID:    user.ID,
		RoleIDs:   res.RoleIDs,
		GroupIDs:  res.GroupIDs,
		Perms:     res.Perms,
		BranchIDs: res.BranchIDs,
		Locale:    user.Locale,
	}
	token, err := s.issuer.Issue(user, claims, s.now())
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user, Claims: claims}, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, token Token) error {
	return s.revoked.Revoke(ctx, token.JTI, token.ExpiresAt)
}

// Me loads the account behind a set of claims and recomputes its effective
// permission sets, so role changes made after login are visible here even
// though the token still carries the sets resolved at issue time.
func (s *Service) Me(ctx context.Context, claims *shared.Claims) (User, authz.Resolution, error) {
	if claims == nil {
		return User{}, authz.Resolution{}, shared.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return User{}, authz.Resolution{}, err
	}
	res, err := s.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return User{}, authz.Resolution{}, err
	}
	return user, res, nil
}
