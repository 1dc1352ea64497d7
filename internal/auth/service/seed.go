package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
	"github.com/opsdesk/opsdesk/internal/auth/store"
	"github.com/opsdesk/opsdesk/pkg/cryptox"
	"github.com/opsdesk/opsdesk/pkg/idx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
)

var ErrSeedInvalid = errors.New("seed admin requires both email and password")

// SeedService creates the first admin identity on an empty store so a fresh
// deployment is usable without manual SQL. It never touches a non-empty store.
type SeedService struct {
	Identities store.Identities
	Hasher     cryptox.Hasher
}

// EnsureAdmin creates an active admin identity with the given credentials if
// and only if no identities exist yet. Returns the new identity ID, or empty
// when seeding was skipped.
func (s *SeedService) EnsureAdmin(ctx context.Context, email, password string) (string, error) {
	l := slogx.FromContext(ctx)

	if email == "" || password == "" {
		return "", ErrSeedInvalid
	}

	empty, err := s.Identities.IsEmpty(ctx)
	if err != nil {
		return "", err
	}
	if !empty {
		l.Debug("store already has identities, skipping admin seed")
		return "", nil
	}

	passHash, err := s.Hasher.Hash(password)
	if err != nil {
		return "", err
	}

	id := idx.New().String()
	err = s.Identities.Create(ctx, domain.Identity{
		ID:           id,
		Email:        domain.NormalizeEmail(email),
		PasswordHash: passHash,
		Role:         domain.RoleAdmin,
		Active:       true,
	})
	if err != nil {
		// Another replica won the race; that admin is as good as ours.
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", nil
		}
		return "", err
	}

	l.Info("seeded initial admin identity", slog.String("identity_id", id))
	return id, nil
}
