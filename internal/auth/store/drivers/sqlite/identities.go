package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
	"github.com/opsdesk/opsdesk/internal/auth/store"
)

const identityColumns = `id, email, password_hash, role, mfa_enabled, mfa_secret, active, last_login_at, created_at, updated_at`

type identitiesRepo struct {
	db *sql.DB
}

func (r *identitiesRepo) FindByEmail(ctx context.Context, email string) (domain.Identity, error) {
	// Email is stored normalized, but the column is NOCASE anyway so a
	// non-normalized caller still matches.
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ?`,
		domain.NormalizeEmail(email),
	)
	return mapIdentityRow(row.Scan)
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return mapIdentityRow(row.Scan)
}

func (r *identitiesRepo) Create(ctx context.Context, identity domain.Identity) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, role, mfa_enabled, mfa_secret, active, last_login_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		identity.ID,
		domain.NormalizeEmail(identity.Email),
		identity.PasswordHash,
		identity.Role.String(),
		mapOptionalTime(identity.MFAEnabled),
		mapOptionalString(identity.MFASecret),
		identity.Active,
		mapOptionalTime(identity.LastLoginAt),
		now,
		now,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *identitiesRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx,
		`UPDATE identities SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id)
}

func (r *identitiesRepo) UpdateMFASecret(ctx context.Context, id, secret string) error {
	return r.exec(ctx,
		`UPDATE identities SET mfa_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().UTC(), id)
}

func (r *identitiesRepo) EnableMFA(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.exec(ctx,
		`UPDATE identities SET mfa_enabled = ?, updated_at = ? WHERE id = ? AND mfa_secret IS NOT NULL`,
		now, now, id)
}

func (r *identitiesRepo) DisableMFA(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE identities SET mfa_enabled = NULL, mfa_secret = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
}

func (r *identitiesRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.exec(ctx,
		`UPDATE identities SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
}

func (r *identitiesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM identities`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

// exec runs a single-row mutation and maps "no rows touched" to ErrNotFound.
func (r *identitiesRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
