package ports

import (
	"context"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// SessionCache holds the last resolved user. It is a display fallback, not a
// source of truth for authorization.
type SessionCache interface {
	// Load returns nil, nil when nothing is cached and domain.ErrCacheCorrupt
	// when the stored value cannot be decoded.
	Load(ctx context.Context) (*domain.UserRecord, error)
	Save(ctx context.Context, u *domain.UserRecord) error
	Clear(ctx context.Context) error
}
