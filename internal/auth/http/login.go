package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/opsdesk/opsdesk/internal/auth/service"
	"github.com/opsdesk/opsdesk/pkg/httpx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
)

// LoginHandler handles POST /v1/auth/login.
type LoginHandler struct {
	AuthService *service.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`

	// WithRefresh asks for a refresh token alongside the access token.
	WithRefresh bool `json:"with_refresh,omitempty"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	pair, err := h.AuthService.Login(ctx, service.LoginInput{
		Email:       req.Email,
		Password:    req.Password,
		TOTPCode:    req.TOTPCode,
		SourceIP:    httpx.ClientIP(r),
		WithRefresh: req.WithRefresh,
	})
	if err != nil {
		writeLoginError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

func writeLoginError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, service.ErrMFARequired):
		httpx.WriteError(w, http.StatusForbidden, "mfa_required", "A TOTP code is required for this account")
	case errors.Is(err, service.ErrInvalidMFACode):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_mfa_code", "Invalid TOTP code")
	case errors.Is(err, service.ErrLookupFailure):
		httpx.WriteError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "Identity store is unavailable")
	default:
		log.Error("login failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
	}
}
