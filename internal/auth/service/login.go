package service

import (
	"context"
	"errors"
	"time"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
	"github.com/opsdesk/opsdesk/internal/auth/store"
	"github.com/opsdesk/opsdesk/pkg/cryptox"
	"github.com/opsdesk/opsdesk/pkg/idx"
	"github.com/opsdesk/opsdesk/pkg/jwtx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
	"github.com/opsdesk/opsdesk/pkg/totpx"
)

var (
	// ErrInvalidCredentials is the single error returned for unknown email,
	// deactivated identity, and wrong password alike. Collapsing the three
	// keeps the login endpoint from acting as an account-enumeration oracle;
	// the precise cause still lands in the audit trail.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrMFARequired means password verification succeeded but the identity
	// has MFA active and no code was supplied.
	ErrMFARequired = errors.New("mfa_required")

	// ErrInvalidMFACode means the supplied TOTP code did not verify.
	ErrInvalidMFACode = errors.New("invalid_mfa_code")

	// ErrLookupFailure means the identity store itself failed, as opposed to
	// a definitive "no such identity" answer. Callers map it to 503, never 401.
	ErrLookupFailure = errors.New("identity_lookup_failure")
)

// AuthService owns the credential-verification and token-issuance flow.
// All collaborators are injected; the service holds no globals.
type AuthService struct {
	Identities store.Identities
	Audit      store.AuditEvents
	Hasher     cryptox.Hasher
	TOTP       totpx.Provider
	Tokens     *jwtx.Issuer

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// dummyHash is verified against on unknown-email attempts so the lookup
	// miss costs roughly the same as a real password check.
	dummyHash string
}

func NewAuthService(
	identities store.Identities,
	audit store.AuditEvents,
	hasher cryptox.Hasher,
	totp totpx.Provider,
	tokens *jwtx.Issuer,
	accessTTL, refreshTTL time.Duration,
) (*AuthService, error) {
	if accessTTL <= 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	dummy, err := hasher.Hash(idx.New().String())
	if err != nil {
		return nil, err
	}

	return &AuthService{
		Identities: identities,
		Audit:      audit,
		Hasher:     hasher,
		TOTP:       totp,
		Tokens:     tokens,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		dummyHash:  dummy,
	}, nil
}

// LoginInput carries one authentication attempt.
type LoginInput struct {
	Email    string
	Password string

	// TOTPCode is required when the identity has MFA active.
	TOTPCode string

	// SourceIP is recorded on audit facts only.
	SourceIP string

	// WithRefresh asks for a refresh token alongside the access token.
	WithRefresh bool
}

// Login runs the full authentication sequence: normalize the email, look the
// identity up, check it is active, verify the password, verify the TOTP code
// when MFA is on, then issue tokens. A token is only ever minted after every
// gate has passed.
//
// Returns:
//   - (pair, nil) on success
//   - ErrInvalidCredentials for unknown email, inactive identity, or wrong
//     password (indistinguishable to the caller)
//   - ErrMFARequired when MFA is active and no code was supplied
//   - ErrInvalidMFACode when the supplied code does not verify
//   - ErrLookupFailure when the identity store errored
func (s *AuthService) Login(ctx context.Context, in LoginInput) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()
	email := domain.NormalizeEmail(in.Email)

	identity, err := s.Identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash verification anyway so the miss is not observable
			// through response timing.
			s.Hasher.Verify(in.Password, s.dummyHash)
			s.audit(ctx, domain.EventLoginFailed, "", email, domain.ReasonIdentityNotFound, in.SourceIP, now)
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		log.Error("identity lookup failed", "error", err)
		return domain.TokenPair{}, ErrLookupFailure
	}

	if !identity.Active {
		s.audit(ctx, domain.EventLoginFailed, identity.ID, email, domain.ReasonIdentityInactive, in.SourceIP, now)
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	if !s.Hasher.Verify(in.Password, identity.PasswordHash) {
		s.audit(ctx, domain.EventLoginFailed, identity.ID, email, domain.ReasonInvalidPassword, in.SourceIP, now)
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	if identity.MFAActive() {
		if in.TOTPCode == "" {
			s.audit(ctx, domain.EventLoginFailed, identity.ID, email, domain.ReasonMFACodeMissing, in.SourceIP, now)
			return domain.TokenPair{}, ErrMFARequired
		}
		if identity.MFASecret == nil || !s.TOTP.Verify(*identity.MFASecret, in.TOTPCode) {
			s.audit(ctx, domain.EventLoginFailed, identity.ID, email, domain.ReasonInvalidMFACode, in.SourceIP, now)
			return domain.TokenPair{}, ErrInvalidMFACode
		}
	}

	pair, err := s.issuePair(identity, in.WithRefresh, now)
	if err != nil {
		log.Error("token issuance failed", "error", err, "identity_id", identity.ID)
		return domain.TokenPair{}, err
	}

	if err := s.Identities.TouchLastLogin(ctx, identity.ID, now); err != nil {
		// Login already succeeded; a stale last_login_at is not worth a 500.
		log.Warn("failed to record last login", "error", err, "identity_id", identity.ID)
	}

	s.audit(ctx, domain.EventLoginSuccess, identity.ID, email, "", in.SourceIP, now)
	log.Info("login succeeded", "identity_id", identity.ID, "role", identity.Role.String())

	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. The
// identity is re-fetched so a deactivation or role change since issuance
// takes effect here, unlike on stateless access-token validation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, sourceIP string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	identity, err := s.Identities.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		log.Error("identity lookup failed", "error", err)
		return domain.TokenPair{}, ErrLookupFailure
	}

	if !identity.Active {
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(identity, true, now)
	if err != nil {
		log.Error("token issuance failed", "error", err, "identity_id", identity.ID)
		return domain.TokenPair{}, err
	}

	s.audit(ctx, domain.EventTokenRefreshed, identity.ID, identity.Email, "", sourceIP, now)

	return pair, nil
}

func (s *AuthService) issuePair(identity domain.Identity, withRefresh bool, now time.Time) (domain.TokenPair, error) {
	access, err := s.Tokens.Issue(identity.ID, identity.Email, identity.Role.String(), s.AccessTTL, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair := domain.TokenPair{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.AccessTTL.Seconds()),
	}

	if withRefresh {
		refresh, err := s.Tokens.IssueRefresh(identity.ID, identity.Email, identity.Role.String(), s.RefreshTTL, now)
		if err != nil {
			return domain.TokenPair{}, err
		}
		pair.RefreshToken = refresh
	}

	return pair, nil
}

// audit records a fact without letting a sink failure surface to the caller.
func (s *AuthService) audit(ctx context.Context, event, actorID, email, reason, sourceIP string, at time.Time) {
	if s.Audit == nil {
		return
	}
	err := s.Audit.Record(ctx, domain.AuditEvent{
		ID:       idx.New().String(),
		Event:    event,
		ActorID:  actorID,
		Email:    email,
		Reason:   reason,
		SourceIP: sourceIP,
		At:       at,
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("audit record failed", "error", err, "event", event)
	}
}
