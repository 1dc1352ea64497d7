package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
	"github.com/opsdesk/opsdesk/internal/auth/store"
)

// Store is the sqlite-backed reference implementation of the identity-store
// and audit-sink collaborators.
type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Identities() store.Identities   { return &identitiesRepo{db: s.db} }
func (s *Store) AuditEvents() store.AuditEvents { return &auditEventsRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func mapOptionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func mapIdentityRow(scan func(dest ...any) error) (domain.Identity, error) {
	var (
		id          domain.Identity
		role        string
		mfaEnabled  sql.NullTime
		mfaSecret   sql.NullString
		lastLoginAt sql.NullTime
	)

	err := scan(
		&id.ID,
		&id.Email,
		&id.PasswordHash,
		&role,
		&mfaEnabled,
		&mfaSecret,
		&id.Active,
		&lastLoginAt,
		&id.CreatedAt,
		&id.UpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}

	id.Role = domain.Role(role)
	id.MFAEnabled = mapNullTimePtr(mfaEnabled)
	id.MFASecret = mapNullStringPtr(mfaSecret)
	id.LastLoginAt = mapNullTimePtr(lastLoginAt)

	return id, nil
}
