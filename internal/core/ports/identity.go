package ports

import (
	"context"
	"time"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// IdentityCredentials is an identity together with its password hash.
type IdentityCredentials struct {
	domain.Identity
	PasswordHash string
}

// IdentityRepository persists credential-store accounts.
type IdentityRepository interface {
	// Create returns domain.ErrUserExists on a duplicate email.
	Create(ctx context.Context, ic *IdentityCredentials) error
	FindByEmail(ctx context.Context, email string) (*IdentityCredentials, error)
	FindByID(ctx context.Context, id string) (*IdentityCredentials, error)
}

// TokenRevoker remembers signed-out token ids until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// IdentityService is the server side of the credential store.
type IdentityService interface {
	SignUp(ctx context.Context, email, password string) (*domain.Identity, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (*domain.Claims, error)
	GetIdentity(ctx context.Context, id string) (*domain.Identity, error)
}
