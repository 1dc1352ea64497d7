package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opsdesk/opsdesk/internal/auth/service"
	"github.com/opsdesk/opsdesk/pkg/httpx"
	"github.com/opsdesk/opsdesk/pkg/jwtx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
)

// RefreshHandler handles POST /v1/auth/refresh.
type RefreshHandler struct {
	AuthService *service.AuthService
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	pair, err := h.AuthService.Refresh(ctx, req.RefreshToken, httpx.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, jwtx.ErrMalformed),
			errors.Is(err, jwtx.ErrSignatureInvalid),
			errors.Is(err, jwtx.ErrExpired),
			errors.Is(err, jwtx.ErrNotYetValid),
			errors.Is(err, jwtx.ErrIssuer),
			errors.Is(err, jwtx.ErrTokenUse),
			errors.Is(err, service.ErrInvalidCredentials):
			// All invalid-token shapes collapse to one answer.
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant", "Refresh token is invalid or expired")
		case errors.Is(err, service.ErrLookupFailure):
			httpx.WriteError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "Identity store is unavailable")
		default:
			log.Error("refresh failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}
