package store

import (
	"context"
	"errors"
	"time"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface the auth core collaborates with.
// The core never owns persistence; a concrete driver (sqlite here, anything
// else in production) implements these contracts. Every mutation the core
// performs is a single statement, so there is no transaction surface.
type Store interface {
	Identities() Identities
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// Identities is the identity-lookup collaborator. Email lookups are
// case-insensitive; callers pass domain.NormalizeEmail output.
type Identities interface {
	// FindByEmail returns the identity for a normalized email.
	FindByEmail(ctx context.Context, email string) (domain.Identity, error)

	// GetByID returns an identity by its ID.
	GetByID(ctx context.Context, id string) (domain.Identity, error)

	// Create inserts a new identity (ID is provided by the app via ULID).
	Create(ctx context.Context, identity domain.Identity) error

	// TouchLastLogin records a successful login time.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// UpdateMFASecret stores a pending TOTP secret without activating MFA.
	UpdateMFASecret(ctx context.Context, id, secret string) error

	// EnableMFA marks MFA active (sets the mfa_enabled timestamp).
	EnableMFA(ctx context.Context, id string) error

	// DisableMFA clears both the activation timestamp and the secret.
	DisableMFA(ctx context.Context, id string) error

	// SetActive toggles the active flag.
	SetActive(ctx context.Context, id string, active bool) error

	// IsEmpty reports whether no identities exist (admin seeding check).
	IsEmpty(ctx context.Context) (bool, error)
}

// AuditEvents is the audit sink collaborator. Recording is fire-and-forget
// from the core's perspective: a sink failure must never fail the
// authentication call that produced the fact.
type AuditEvents interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}
