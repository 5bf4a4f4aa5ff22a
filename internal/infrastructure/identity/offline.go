package identity

import (
	"context"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// Offline is the credential store of a disconnected deployment. Every call
// fails with domain.ErrRemoteUnavailable, so logins fall through to the demo
// table and bootstrap falls back to the local cache.
type Offline struct{}

var _ ports.CredentialStore = Offline{}

func (Offline) SignIn(context.Context, string, string) (*domain.Session, error) {
	return nil, domain.ErrRemoteUnavailable
}

func (Offline) SignUp(context.Context, string, string) (*domain.Identity, error) {
	return nil, domain.ErrRemoteUnavailable
}

func (Offline) SignOut(context.Context) error { return domain.ErrRemoteUnavailable }

func (Offline) GetSession(context.Context) (*domain.Session, error) {
	return nil, domain.ErrRemoteUnavailable
}

func (Offline) OnSessionChange(func(domain.SessionEvent)) func() { return func() {} }
