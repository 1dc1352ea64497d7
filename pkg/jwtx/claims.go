package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opsdesk/opsdesk/pkg/cryptox"
)

// Token TTL defaults. Short-lived access tokens keep the blast radius of a
// leaked token small; there is no revocation channel in a stateless design,
// so TTL is the only lever.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token use markers, carried in the token_use claim so an access token can
// never be replayed against the refresh endpoint or vice versa.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims are the session-token claims. The token is self-contained: validity
// is a function of signature and expiry only, no server-side session store.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the subject identity, case-normalized.
	Email string `json:"email,omitempty"`

	// Role is captured at issuance time. A role change only affects tokens
	// issued after the change; outstanding tokens keep the embedded role
	// until they expire. That staleness is the price of stateless validation.
	Role string `json:"role,omitempty"`

	// TokenUse is TokenUseAccess or TokenUseRefresh.
	TokenUse string `json:"token_use,omitempty"`
}

// NewClaims builds minimally-correct claims for a session token.
func NewClaims(
	subject, email, role, tokenUse string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:    email,
		Role:     role,
		TokenUse: tokenUse,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	jti, err := cryptox.GenerateToken(20)
	if err != nil {
		// crypto/rand failing means the process has far bigger problems.
		panic("jwtx: failed to generate jti: " + err.Error())
	}
	return jti
}

// ValidateIssuer checks the issuer claim against the expected value.
// An empty expected value enforces nothing.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateUse checks the token_use claim against the expected marker.
func (c *Claims) ValidateUse(expected string) error {
	if c.TokenUse != expected {
		return ErrTokenUse
	}
	return nil
}

// ExpiresIn returns the remaining lifetime in whole seconds at the given
// time, clamped at zero. Expiry granularity is seconds throughout.
func (c *Claims) ExpiresIn(now time.Time) int64 {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := c.ExpiresAt.Unix() - now.UTC().Unix()
	if remaining < 0 {
		return 0
	}
	return remaining
}
