package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList is a redis denylist of token ids. Logout pushes the jti
// here with a TTL matching the token's remaining lifetime, so the list
// cleans itself up once the token would have expired anyway.
type RevocationList struct {
	client *redis.Client
}

// NewRevocationList constructs a revocation list.
func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{client: client}
}

func revocationKey(jti string) string {
	return "revoked:" + jti
}

// Revoke marks a token id as revoked until it expires.
func (l *RevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return l.client.Set(ctx, revocationKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether a token id has been revoked.
func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
