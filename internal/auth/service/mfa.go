package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
	"github.com/opsdesk/opsdesk/internal/auth/store"
	"github.com/opsdesk/opsdesk/pkg/idx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
	"github.com/opsdesk/opsdesk/pkg/totpx"
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid_totp_code")
	ErrMFANotEnrolled    = errors.New("mfa_not_enrolled")
	ErrMFAAlreadyEnabled = errors.New("mfa_already_enabled")
)

// MFAService manages the TOTP enrollment lifecycle: enroll stores a pending
// secret, activate proves possession of it, disable clears both. An identity
// with a pending (unactivated) secret logs in password-only until activation.
type MFAService struct {
	Identities store.Identities
	Audit      store.AuditEvents
	TOTP       totpx.Provider
}

// EnrollTOTP generates a TOTP secret for the identity and returns it together
// with its provisioning URI. This does NOT activate MFA yet - the identity
// must verify a code via ActivateTOTP first. The secret is returned exactly
// once; it is not retrievable afterwards.
func (s *MFAService) EnrollTOTP(ctx context.Context, identityID string) (domain.MFAEnrollment, error) {
	identity, err := s.Identities.GetByID(ctx, identityID)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("get identity: %w", err)
	}
	if identity.MFAActive() {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	secret, uri, err := s.TOTP.GenerateSecret(identity.Email)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}

	// Store the secret without activating. Re-enrolling before activation
	// simply replaces the pending secret.
	if err := s.Identities.UpdateMFASecret(ctx, identityID, secret); err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("store mfa secret: %w", err)
	}

	s.audit(ctx, domain.EventMFAEnrolled, identity)

	return domain.MFAEnrollment{
		Secret:  secret,
		URI:     uri,
		Issuer:  s.TOTP.Issuer(),
		Account: identity.Email,
	}, nil
}

// ActivateTOTP verifies a code against the pending secret and turns MFA on.
func (s *MFAService) ActivateTOTP(ctx context.Context, identityID, code string) error {
	identity, err := s.Identities.GetByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("get identity: %w", err)
	}
	if identity.MFAActive() {
		return ErrMFAAlreadyEnabled
	}
	if identity.MFASecret == nil || *identity.MFASecret == "" {
		return ErrMFANotEnrolled
	}

	if !s.TOTP.Verify(*identity.MFASecret, code) {
		return ErrInvalidTOTPCode
	}

	if err := s.Identities.EnableMFA(ctx, identityID); err != nil {
		return fmt.Errorf("enable mfa: %w", err)
	}

	s.audit(ctx, domain.EventMFAActivated, identity)
	return nil
}

// DisableTOTP turns MFA off after verifying a current code. The code check
// stops a hijacked session from silently stripping the second factor.
func (s *MFAService) DisableTOTP(ctx context.Context, identityID, code string) error {
	identity, err := s.Identities.GetByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("get identity: %w", err)
	}
	if !identity.MFAActive() {
		return ErrMFANotEnrolled
	}

	if identity.MFASecret == nil || !s.TOTP.Verify(*identity.MFASecret, code) {
		return ErrInvalidTOTPCode
	}

	if err := s.Identities.DisableMFA(ctx, identityID); err != nil {
		return fmt.Errorf("disable mfa: %w", err)
	}

	s.audit(ctx, domain.EventMFADisabled, identity)
	return nil
}

func (s *MFAService) audit(ctx context.Context, event string, identity domain.Identity) {
	if s.Audit == nil {
		return
	}
	err := s.Audit.Record(ctx, domain.AuditEvent{
		ID:      idx.New().String(),
		Event:   event,
		ActorID: identity.ID,
		Email:   identity.Email,
		At:      time.Now(),
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("audit record failed", "error", err, "event", event)
	}
}
