package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
	"github.com/opsdesk/opsdesk/internal/auth/store"
	"github.com/opsdesk/opsdesk/internal/auth/store/drivers/sqlite"
	"github.com/opsdesk/opsdesk/pkg/idx"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "auth.db")
	s, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestIdentity() domain.Identity {
	return domain.Identity{
		ID:           idx.New().String(),
		Email:        "ops@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHRzYWx0c2Fs$ZGlnZXN0",
		Role:         domain.RoleOperator,
		Active:       true,
	}
}

func TestIdentities_CreateAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Identities()

	empty, err := repo.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	want := newTestIdentity()
	require.NoError(t, repo.Create(ctx, want))

	empty, err = repo.IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	got, err := repo.FindByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Email, got.Email)
	require.Equal(t, want.PasswordHash, got.PasswordHash)
	require.Equal(t, domain.RoleOperator, got.Role)
	require.True(t, got.Active)
	require.Nil(t, got.MFAEnabled)
	require.Nil(t, got.MFASecret)
	require.Nil(t, got.LastLoginAt)
	require.False(t, got.CreatedAt.IsZero())

	// Lookup is case-insensitive and whitespace tolerant.
	got, err = repo.FindByEmail(ctx, "  OPS@Example.COM ")
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)

	byID, err := repo.GetByID(ctx, want.ID)
	require.NoError(t, err)
	require.Equal(t, want.Email, byID.Email)
}

func TestIdentities_CreateDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Identities()

	first := newTestIdentity()
	require.NoError(t, repo.Create(ctx, first))

	dup := newTestIdentity()
	dup.ID = idx.New().String()
	dup.Email = "OPS@example.com"
	err := repo.Create(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestIdentities_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Identities()

	_, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = repo.GetByID(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)

	err = repo.TouchLastLogin(ctx, idx.New().String(), time.Now())
	require.ErrorIs(t, err, store.ErrNotFound)

	err = repo.SetActive(ctx, idx.New().String(), false)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestIdentities_TouchLastLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Identities()

	id := newTestIdentity()
	require.NoError(t, repo.Create(ctx, id))

	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, repo.TouchLastLogin(ctx, id.ID, at))

	got, err := repo.GetByID(ctx, id.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.WithinDuration(t, at, *got.LastLoginAt, time.Second)
}

func TestIdentities_MFALifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Identities()

	id := newTestIdentity()
	require.NoError(t, repo.Create(ctx, id))

	// Activation without a pending secret is refused.
	err := repo.EnableMFA(ctx, id.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.UpdateMFASecret(ctx, id.ID, "JBSWY3DPEHPK3PXP"))

	got, err := repo.GetByID(ctx, id.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MFASecret)
	require.Equal(t, "JBSWY3DPEHPK3PXP", *got.MFASecret)
	require.Nil(t, got.MFAEnabled)
	require.False(t, got.MFAActive())

	require.NoError(t, repo.EnableMFA(ctx, id.ID))

	got, err = repo.GetByID(ctx, id.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MFAEnabled)
	require.True(t, got.MFAActive())

	require.NoError(t, repo.DisableMFA(ctx, id.ID))

	got, err = repo.GetByID(ctx, id.ID)
	require.NoError(t, err)
	require.Nil(t, got.MFAEnabled)
	require.Nil(t, got.MFASecret)
	require.False(t, got.MFAActive())
}

func TestIdentities_SetActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Identities()

	id := newTestIdentity()
	require.NoError(t, repo.Create(ctx, id))

	require.NoError(t, repo.SetActive(ctx, id.ID, false))

	got, err := repo.GetByID(ctx, id.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
}

func TestAuditEvents_Record(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.AuditEvents().Record(ctx, domain.AuditEvent{
		ID:       idx.New().String(),
		Event:    domain.EventLoginFailed,
		Email:    "ops@example.com",
		Reason:   domain.ReasonInvalidPassword,
		SourceIP: "203.0.113.7",
		At:       time.Now(),
	})
	require.NoError(t, err)

	// Empty optional fields are stored as NULLs without error.
	err = s.AuditEvents().Record(ctx, domain.AuditEvent{
		ID:    idx.New().String(),
		Event: domain.EventLoginSuccess,
		At:    time.Now(),
	})
	require.NoError(t, err)
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
