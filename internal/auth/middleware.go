package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Middleware extracts and validates the bearer token, checks the
// revocation list, and places the session claims in request context.
// Requests without a token pass through with no claims; the guard rejects
// them at protected routes.
type Middleware struct {
	Issuer  *Issuer
	Revoked *RevocationList
	Logger  *slog.Logger
}

// Handler is the chi middleware entry point.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, token, err := m.Issuer.Validate(raw)
		if err != nil {
			httpx.RespondError(w, r, shared.ErrUnauthorized)
			return
		}
		if m.Revoked != nil {
			revoked, err := m.Revoked.IsRevoked(r.Context(), token.JTI)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("revocation check", slog.Any("error", err))
				}
				httpx.RespondError(w, r, err)
				return
			}
			if revoked {
				httpx.RespondError(w, r, shared.ErrUnauthorized)
				return
			}
		}
		ctx := shared.ContextWithClaims(r.Context(), claims)
		ctx = contextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	raw := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(raw) <= len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(raw[len(prefix):])
}
