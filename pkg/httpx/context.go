package httpx

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Principal is the identity resolved for a request. The zero value is the
// anonymous principal. The context always carries a Principal once
// ResolveIdentity has run - identity may be anonymous, but the field is
// never missing, so handlers never probe for presence.
type Principal struct {
	IdentityID    string
	Email         string
	Role          string
	Authenticated bool
}

// Anonymous is the principal attached to requests with no valid bearer token.
var Anonymous = Principal{}

type principalKey struct{}

// WithPrincipal returns a context carrying p. The value is immutable for the
// request's lifetime.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the request principal, or Anonymous when
// resolution never ran.
func PrincipalFromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Anonymous
}

// ClientIP extracts the client IP from a request, honouring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
