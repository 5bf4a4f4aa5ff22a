package identity

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// Local is a credential store that calls the identity service in-process,
// for deployments where the portal reaches the identity database directly.
type Local struct {
	svc    ports.IdentityService
	tokens ports.TokenStore
	hub    *eventHub
	log    zerolog.Logger
	now    func() time.Time
}

var _ ports.CredentialStore = (*Local)(nil)

func NewLocal(svc ports.IdentityService, tokens ports.TokenStore, log zerolog.Logger) *Local {
	return &Local{
		svc:    svc,
		tokens: tokens,
		hub:    newEventHub(),
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	session, err := l.svc.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := l.tokens.SaveSession(ctx, session); err != nil {
		l.log.Warn().Err(err).Msg("failed to persist session token")
	}
	l.hub.publish(domain.SessionEvent{Type: domain.EventSignedIn, Session: session})
	return session, nil
}

func (l *Local) SignUp(ctx context.Context, email, password string) (*domain.Identity, error) {
	return l.svc.SignUp(ctx, email, password)
}

func (l *Local) SignOut(ctx context.Context) error {
	var err error
	session, loadErr := l.tokens.LoadSession(ctx)
	if loadErr == nil && session != nil && !session.Expired(l.now()) {
		err = l.svc.SignOut(ctx, session.AccessToken)
		if errors.Is(err, domain.ErrInvalidToken) {
			err = nil
		}
	}
	if clearErr := l.tokens.ClearSession(ctx); clearErr != nil {
		l.log.Warn().Err(clearErr).Msg("failed to clear stored session token")
	}
	l.hub.publish(domain.SessionEvent{Type: domain.EventSignedOut})
	return err
}

func (l *Local) GetSession(ctx context.Context) (*domain.Session, error) {
	session, err := l.tokens.LoadSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	claims, err := l.svc.Verify(ctx, session.AccessToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			_ = l.tokens.ClearSession(ctx)
			return nil, nil
		}
		return nil, err
	}
	session.UserID = claims.UserID
	session.Email = claims.Email
	return session, nil
}

func (l *Local) OnSessionChange(fn func(domain.SessionEvent)) func() {
	return l.hub.subscribe(fn)
}
