package ports

import (
	"context"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// CredentialStore is the remote identity provider seen from the client side.
// It authenticates email/password pairs and owns the live session.
type CredentialStore interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string) (*domain.Identity, error)
	// SignOut invalidates the current session. The local session is dropped
	// even when the remote call fails.
	SignOut(ctx context.Context) error
	// GetSession returns the live session, or nil when there is none.
	GetSession(ctx context.Context) (*domain.Session, error)
	// OnSessionChange registers fn for session events and returns a function
	// that removes the subscription.
	OnSessionChange(fn func(domain.SessionEvent)) (unsubscribe func())
}

// TokenStore persists the credential store's session between runs.
type TokenStore interface {
	LoadSession(ctx context.Context) (*domain.Session, error)
	SaveSession(ctx context.Context, s *domain.Session) error
	ClearSession(ctx context.Context) error
}
