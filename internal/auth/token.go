package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// tokenClaims is the JWT payload: registered claims plus the flattened
// authorization state resolved at login.
type tokenClaims struct {
	Perms     []string `json:"perms"`
	RoleIDs   []int64  `json:"roles"`
	GroupIDs  []int64  `json:"groups"`
	BranchIDs []int64  `json:"branch_ids"`
	Locale    string   `json:"locale,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and validates session tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewIssuer constructs a token issuer.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: "meridian-erp", ttl: ttl}
}

// Token is an issued session token and its identity for revocation.
type Token struct {
	Signed    string
	JTI       string
	ExpiresAt time.Time
}

// Issue signs a token carrying the user's resolved claims.
func (i *Issuer) Issue(user User, claims shared.Claims, now time.Time) (Token, error) {
	jti := uuid.NewString()
	expires := now.Add(i.ttl)
	payload := tokenClaims{
		Perms:     claims.Perms,
		RoleIDs:   claims.RoleIDs,
		GroupIDs:  claims.GroupIDs,
		BranchIDs: claims.BranchIDs,
		Locale:    claims.Locale,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(i.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Signed: signed, JTI: jti, ExpiresAt: expires}, nil
}

// Validate parses and verifies a signed token, returning the session claims
// and the token identity.
func (i *Issuer) Validate(signed string) (*shared.Claims, Token, error) {
	var payload tokenClaims
	token, err := jwt.ParseWithClaims(signed, &payload, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer))
	if err != nil || !token.Valid {
		return nil, Token{}, shared.ErrUnauthorized
	}
	userID, err := strconv.ParseInt(payload.Subject, 10, 64)
	if err != nil {
		return nil, Token{}, shared.ErrUnauthorized
	}
	claims := &shared.Claims{
		UserID:    userID,
		RoleIDs:   payload.RoleIDs,
		GroupIDs:  payload.GroupIDs,
		Perms:     payload.Perms,
		BranchIDs: payload.BranchIDs,
		Locale:    payload.Locale,
	}
	var expires time.Time
	if payload.ExpiresAt != nil {
		expires = payload.ExpiresAt.Time
	}
	return claims, Token{Signed: signed, JTI: payload.ID, ExpiresAt: expires}, nil
}
