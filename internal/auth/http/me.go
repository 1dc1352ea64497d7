package http

import (
	"net/http"

	"github.com/opsdesk/opsdesk/pkg/httpx"
)

// MeHandler handles GET /v1/auth/me, echoing the principal the middleware
// resolved. Wired behind RequireAuthenticated, so the principal is never
// anonymous here.
type MeHandler struct{}

type meResponse struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := httpx.PrincipalFromContext(r.Context())

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		IdentityID: p.IdentityID,
		Email:      p.Email,
		Role:       p.Role,
	})
}
