package httpx

import (
	"net/http"
	"strings"
)

// RequireAuthenticated rejects anonymous requests with 401. Run it after
// ResolveIdentity on endpoints that have no public behaviour.
func RequireAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !PrincipalFromContext(r.Context()).Authenticated {
				writeBearerError(w, "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests whose principal does not hold one of the
// listed roles. Anonymous principals get 401, authenticated ones 403.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if !p.Authenticated {
				writeBearerError(w, "missing or invalid bearer token")
				return
			}
			if _, ok := want[p.Role]; !ok {
				writeRoleError(w, roles...)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-style error response for bearer auth failures.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, ErrorBody{
		Error:       "invalid_token",
		Description: desc,
	})
}

func writeRoleError(w http.ResponseWriter, required ...string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
	WriteJSON(w, http.StatusForbidden, ErrorBody{
		Error:       "forbidden",
		Description: "requires role: " + strings.Join(required, " or "),
	})
}
