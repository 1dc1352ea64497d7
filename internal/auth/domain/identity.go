package domain

import (
	"strings"
	"time"
)

// Identity is a user record as the identity store returns it. The auth core
// treats it as an immutable value fetched per request and never caches it
// across requests.
type Identity struct {
	ID           string
	Email        string // unique, stored case-normalized
	PasswordHash string // argon2id PHC encoded
	Role         Role
	MFAEnabled   *time.Time // timestamp when MFA was activated (nullable)
	MFASecret    *string    // TOTP secret, present iff enrolled (base32)
	Active       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFAActive reports whether MFA has been enrolled and activated.
func (i Identity) MFAActive() bool {
	return i.MFAEnabled != nil && i.MFASecret != nil && *i.MFASecret != ""
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
// Lookups are case-insensitive; this is the canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
