package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
	"github.com/opsdesk/opsdesk/internal/auth/store"
	"github.com/opsdesk/opsdesk/pkg/cryptox"
	"github.com/opsdesk/opsdesk/pkg/idx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
)

var (
	ErrEmailTaken       = errors.New("email_taken")
	ErrIdentityNotFound = errors.New("identity_not_found")
)

// AdminService covers operator-facing identity management: creating accounts
// and toggling the active flag. Deactivation is the revocation lever this
// service has - outstanding access tokens stay valid until expiry, but login
// and refresh stop immediately.
type AdminService struct {
	Identities store.Identities
	Hasher     cryptox.Hasher
}

// CreateIdentity provisions a new account with the given role.
func (s *AdminService) CreateIdentity(ctx context.Context, email, password string, role domain.Role) (domain.Identity, error) {
	if !role.Valid() {
		return domain.Identity{}, fmt.Errorf("domain: unknown role %q", role)
	}

	passHash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.Identity{}, err
	}

	identity := domain.Identity{
		ID:           idx.New().String(),
		Email:        domain.NormalizeEmail(email),
		PasswordHash: passHash,
		Role:         role,
		Active:       true,
	}

	if err := s.Identities.Create(ctx, identity); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Identity{}, ErrEmailTaken
		}
		return domain.Identity{}, err
	}

	slogx.FromContext(ctx).Info("identity created",
		"identity_id", identity.ID, "role", role.String())

	return identity, nil
}

// GetIdentity returns an identity by ID.
func (s *AdminService) GetIdentity(ctx context.Context, id string) (domain.Identity, error) {
	identity, err := s.Identities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrIdentityNotFound
		}
		return domain.Identity{}, err
	}
	return identity, nil
}

// SetActive toggles an identity's active flag.
func (s *AdminService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.Identities.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return err
	}

	slogx.FromContext(ctx).Info("identity active flag changed",
		"identity_id", id, "active", active)
	return nil
}
