package ports

import (
	"context"
	"time"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// ProfileRepository persists profile rows keyed by identity id.
type ProfileRepository interface {
	// FindByID returns domain.ErrProfileNotFound when no row exists.
	FindByID(ctx context.Context, id string) (*domain.ProfileRecord, error)
	Insert(ctx context.Context, p *domain.ProfileRecord) error
	// Update writes only the set fields. Returns domain.ErrProfileNotFound
	// when no row matched.
	Update(ctx context.Context, id string, fields domain.ProfileFields) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	// List returns profiles, optionally filtered by role ("" = all).
	List(ctx context.Context, role domain.Role) ([]*domain.ProfileRecord, error)
}

// ProfileStore is the resolver's view of the profile store, already
// translated into UserRecord.
type ProfileStore interface {
	ReadProfile(ctx context.Context, id string) (*domain.UserRecord, error)
	WriteProfile(ctx context.Context, id string, fields domain.ProfileFields) error
	CreateProfile(ctx context.Context, u *domain.UserRecord) error
}

// LastLoginStamper records last_login values asynchronously.
type LastLoginStamper interface {
	Stamp(userID string, at time.Time)
}
