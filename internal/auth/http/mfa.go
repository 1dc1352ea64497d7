package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opsdesk/opsdesk/internal/auth/service"
	"github.com/opsdesk/opsdesk/pkg/httpx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
)

// MFAHandler handles the TOTP enrollment lifecycle endpoints.
type MFAHandler struct {
	MFAService *service.MFAService
}

type totpEnrollResponse struct {
	Secret  string `json:"secret"`
	URI     string `json:"uri"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

type totpCodeRequest struct {
	Code string `json:"code"`
}

// HandleEnroll handles POST /v1/mfa/totp/enroll. The secret in the response
// is shown exactly once.
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	p := httpx.PrincipalFromContext(ctx)

	enrollment, err := h.MFAService.EnrollTOTP(ctx, p.IdentityID)
	if err != nil {
		if errors.Is(err, service.ErrMFAAlreadyEnabled) {
			httpx.WriteError(w, http.StatusConflict, "mfa_already_enabled", "MFA is already active for this identity")
			return
		}
		log.Error("totp enrollment failed", "error", err, "identity_id", p.IdentityID)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, totpEnrollResponse{
		Secret:  enrollment.Secret,
		URI:     enrollment.URI,
		Issuer:  enrollment.Issuer,
		Account: enrollment.Account,
	})
}

// HandleActivate handles POST /v1/mfa/totp/activate.
func (h *MFAHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	p := httpx.PrincipalFromContext(ctx)

	var req totpCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.MFAService.ActivateTOTP(ctx, p.IdentityID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "Invalid TOTP code")
		case errors.Is(err, service.ErrMFANotEnrolled):
			httpx.WriteError(w, http.StatusBadRequest, "mfa_not_enrolled", "Enroll before activating")
		case errors.Is(err, service.ErrMFAAlreadyEnabled):
			httpx.WriteError(w, http.StatusConflict, "mfa_already_enabled", "MFA is already active for this identity")
		default:
			log.Error("totp activation failed", "error", err, "identity_id", p.IdentityID)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "mfa_enabled"})
}

// HandleDisable handles DELETE /v1/mfa/totp. A current code is required so a
// stolen session cannot silently strip the second factor.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	p := httpx.PrincipalFromContext(ctx)

	var req totpCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.MFAService.DisableTOTP(ctx, p.IdentityID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "Invalid TOTP code")
		case errors.Is(err, service.ErrMFANotEnrolled):
			httpx.WriteError(w, http.StatusBadRequest, "mfa_not_enabled", "MFA is not active for this identity")
		default:
			log.Error("totp disable failed", "error", err, "identity_id", p.IdentityID)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "mfa_disabled"})
}
