package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// ProfileRepository is an in-memory implementation of ports.ProfileRepository.
type ProfileRepository struct {
	mu    sync.RWMutex
	store map[string]*domain.ProfileRecord
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{store: make(map[string]*domain.ProfileRecord)}
}

func (r *ProfileRepository) FindByID(_ context.Context, id string) (*domain.ProfileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.store[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

func (r *ProfileRepository) Insert(_ context.Context, p *domain.ProfileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[p.ID]; exists {
		return domain.ErrUserExists
	}
	for _, existing := range r.store {
		if existing.Email == p.Email {
			return domain.ErrUserExists
		}
	}
	r.store[p.ID] = cloneProfile(p)
	return nil
}

func (r *ProfileRepository) Update(_ context.Context, id string, fields domain.ProfileFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.store[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	u := p.ToUserRecord()
	fields.ApplyTo(u)
	updated := domain.ProfileRecordFrom(u)
	r.store[id] = updated
	return nil
}

func (r *ProfileRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.store[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	t := at
	p.LastLogin = &t
	return nil
}

func (r *ProfileRepository) List(_ context.Context, role domain.Role) ([]*domain.ProfileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.ProfileRecord, 0, len(r.store))
	for _, p := range r.store {
		if role != "" && p.Role != string(role) {
			continue
		}
		result = append(result, cloneProfile(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func cloneProfile(p *domain.ProfileRecord) *domain.ProfileRecord {
	return domain.ProfileRecordFrom(p.ToUserRecord().Clone())
}
