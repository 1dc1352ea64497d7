package httpx

import (
	"net/http"
	"strings"

	"github.com/opsdesk/opsdesk/pkg/jwtx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (jwtx.Claims, error)
}

// ResolveIdentity runs once per request and attaches the resolved Principal
// to the request context. It is a pure identity-resolution step, not a
// gatekeeper: a missing, malformed, or expired token resolves to Anonymous
// and the request proceeds. Rejection is the authorization layer's job
// (RequireAuthenticated / RequireRole), which lets endpoints mix public and
// authenticated behaviour.
func ResolveIdentity(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, Anonymous)))
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				// Invalid tokens resolve to anonymous, same as no token.
				slogx.FromContext(ctx).Debug("bearer token rejected", "err", err)
				next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, Anonymous)))
				return
			}

			p := Principal{
				IdentityID:    claims.Subject,
				Email:         claims.Email,
				Role:          claims.Role,
				Authenticated: true,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>", or ""
// when the header is absent or not a bearer scheme.
func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
