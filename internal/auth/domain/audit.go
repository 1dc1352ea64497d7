package domain

import "time"

// Audit event names emitted by the auth core. The sink owns persistence;
// the core only emits facts and never fails an operation on a sink error.
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailed    = "login_failed"
	EventTokenRefreshed = "token_refreshed"
	EventMFAEnrolled    = "mfa_enrolled"
	EventMFAActivated   = "mfa_activated"
	EventMFADisabled    = "mfa_disabled"
)

// Failure reason codes recorded on login_failed facts. These are internal:
// the client always sees the merged invalid_credentials error, but the audit
// trail keeps the precise cause.
const (
	ReasonIdentityNotFound = "identity_not_found"
	ReasonIdentityInactive = "identity_inactive"
	ReasonInvalidPassword  = "invalid_password"
	ReasonMFACodeMissing   = "mfa_code_missing"
	ReasonInvalidMFACode   = "invalid_mfa_code"
)

// AuditEvent is a structured fact for the audit sink. Plaintext secrets
// (passwords, TOTP codes, signing keys) never appear in a fact.
type AuditEvent struct {
	ID       string
	Event    string
	ActorID  string // identity ID when known
	Email    string // attempted email on failures
	Reason   string // reason code on failures
	SourceIP string
	At       time.Time
}
