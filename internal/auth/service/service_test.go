package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
	"github.com/opsdesk/opsdesk/internal/auth/store"
	"github.com/opsdesk/opsdesk/pkg/cryptox"
)

// testHasher uses deliberately small work factors so the suite stays fast.
var testHasher = cryptox.NewHasher(cryptox.Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
})

// fakeIdentities is an in-memory store.Identities keyed by ID.
type fakeIdentities struct {
	mu         sync.Mutex
	identities map[string]domain.Identity

	// failWith, when set, makes every lookup return this error.
	failWith error
}

func newFakeIdentities(seed ...domain.Identity) *fakeIdentities {
	f := &fakeIdentities{identities: make(map[string]domain.Identity)}
	for _, id := range seed {
		f.identities[id.ID] = id
	}
	return f
}

func (f *fakeIdentities) FindByEmail(_ context.Context, email string) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return domain.Identity{}, f.failWith
	}
	for _, id := range f.identities {
		if id.Email == domain.NormalizeEmail(email) {
			return id, nil
		}
	}
	return domain.Identity{}, store.ErrNotFound
}

func (f *fakeIdentities) GetByID(_ context.Context, id string) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return domain.Identity{}, f.failWith
	}
	identity, ok := f.identities[id]
	if !ok {
		return domain.Identity{}, store.ErrNotFound
	}
	return identity, nil
}

func (f *fakeIdentities) Create(_ context.Context, identity domain.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.identities {
		if existing.Email == identity.Email {
			return store.ErrAlreadyExists
		}
	}
	f.identities[identity.ID] = identity
	return nil
}

func (f *fakeIdentities) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	return f.update(id, func(identity *domain.Identity) {
		identity.LastLoginAt = &at
	})
}

func (f *fakeIdentities) UpdateMFASecret(_ context.Context, id, secret string) error {
	return f.update(id, func(identity *domain.Identity) {
		identity.MFASecret = &secret
	})
}

func (f *fakeIdentities) EnableMFA(_ context.Context, id string) error {
	now := time.Now()
	return f.update(id, func(identity *domain.Identity) {
		identity.MFAEnabled = &now
	})
}

func (f *fakeIdentities) DisableMFA(_ context.Context, id string) error {
	return f.update(id, func(identity *domain.Identity) {
		identity.MFAEnabled = nil
		identity.MFASecret = nil
	})
}

func (f *fakeIdentities) SetActive(_ context.Context, id string, active bool) error {
	return f.update(id, func(identity *domain.Identity) {
		identity.Active = active
	})
}

func (f *fakeIdentities) IsEmpty(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	return len(f.identities) == 0, nil
}

func (f *fakeIdentities) update(id string, fn func(*domain.Identity)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.identities[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&identity)
	f.identities[id] = identity
	return nil
}

// fakeAudit collects recorded facts for assertions.
type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent

	// failWith, when set, makes Record return this error.
	failWith error
}

func (f *fakeAudit) Record(_ context.Context, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) last() (domain.AuditEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return domain.AuditEvent{}, false
	}
	return f.events[len(f.events)-1], true
}
