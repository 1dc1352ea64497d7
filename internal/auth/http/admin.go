package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
	"github.com/opsdesk/opsdesk/internal/auth/service"
	"github.com/opsdesk/opsdesk/pkg/httpx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
)

// AdminHandler handles the admin-only identity management endpoints.
type AdminHandler struct {
	AdminService *service.AdminService
}

type createIdentityRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type identityResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	MFAEnabled  bool       `json:"mfa_enabled"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func toIdentityResponse(identity domain.Identity) identityResponse {
	return identityResponse{
		ID:          identity.ID,
		Email:       identity.Email,
		Role:        identity.Role.String(),
		Active:      identity.Active,
		MFAEnabled:  identity.MFAActive(),
		LastLoginAt: identity.LastLoginAt,
		CreatedAt:   identity.CreatedAt,
	}
}

// HandleCreate handles POST /v1/admin/identities.
func (h *AdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req createIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown role")
		return
	}

	identity, err := h.AdminService.CreateIdentity(ctx, req.Email, req.Password, role)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			httpx.WriteError(w, http.StatusConflict, "email_taken", "An identity with this email already exists")
			return
		}
		log.Error("identity creation failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toIdentityResponse(identity))
}

// HandleGet handles GET /v1/admin/identities/{id}.
func (h *AdminHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, err := h.AdminService.GetIdentity(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such identity")
			return
		}
		slogx.FromContext(r.Context()).Error("identity lookup failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toIdentityResponse(identity))
}

// HandleSetActive handles PUT /v1/admin/identities/{id}/active.
func (h *AdminHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.AdminService.SetActive(ctx, r.PathValue("id"), req.Active); err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such identity")
			return
		}
		slogx.FromContext(ctx).Error("set active failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}
