package inmemory

import (
	"context"
	"strings"
	"sync"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// IdentityRepository is an in-memory implementation of ports.IdentityRepository.
type IdentityRepository struct {
	mu      sync.RWMutex
	byID    map[string]*ports.IdentityCredentials
	byEmail map[string]string
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:    make(map[string]*ports.IdentityCredentials),
		byEmail: make(map[string]string),
	}
}

func (r *IdentityRepository) Create(_ context.Context, ic *ports.IdentityCredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(ic.Email)
	if _, exists := r.byEmail[key]; exists {
		return domain.ErrUserExists
	}
	c := *ic
	r.byID[c.ID] = &c
	r.byEmail[key] = c.ID
	return nil
}

func (r *IdentityRepository) FindByEmail(_ context.Context, email string) (*ports.IdentityCredentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

func (r *IdentityRepository) FindByID(_ context.Context, id string) (*ports.IdentityCredentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ic, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *ic
	return &c, nil
}
