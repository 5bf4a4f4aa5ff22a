package identity

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// Remote is a credential store backed by the identity API over HTTP. The
// session is persisted in a TokenStore so separate processes share it.
//
// Tokens issued at sign-up are held apart from the stored session, keyed by
// the new user's ID, until the profile row for that user is inserted.
type Remote struct {
	client *Client
	tokens ports.TokenStore
	hub    *eventHub
	log    zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	signUps map[string]signUpToken
}

type signUpToken struct {
	token     string
	expiresAt time.Time
}

var _ ports.CredentialStore = (*Remote)(nil)

func NewRemote(client *Client, tokens ports.TokenStore, log zerolog.Logger) *Remote {
	return &Remote{
		client:  client,
		tokens:  tokens,
		hub:     newEventHub(),
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		signUps: make(map[string]signUpToken),
	}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	ExpiresAt   int64           `json:"expires_at"`
	User        domain.Identity `json:"user"`
}

type signUpResponse struct {
	domain.Identity
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (r *Remote) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	var tr tokenResponse
	err := r.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token?grant_type=password",
		body:   credentialsBody{Email: email, Password: password},
		out:    &tr,
	})
	if err != nil {
		return nil, err
	}
	if tr.AccessToken == "" || tr.User.ID == "" {
		return nil, domain.ErrInvalidCredentials
	}

	expiresAt := time.Unix(tr.ExpiresAt, 0).UTC()
	if tr.ExpiresAt == 0 {
		expiresAt = r.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	session := &domain.Session{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		ExpiresAt:   expiresAt,
		UserID:      tr.User.ID,
		Email:       tr.User.Email,
	}
	if err := r.tokens.SaveSession(ctx, session); err != nil {
		r.log.Warn().Err(err).Msg("failed to persist session token")
	}

	r.hub.publish(domain.SessionEvent{Type: domain.EventSignedIn, Session: session})
	return session, nil
}

// SignUp creates the identity. When the identity API signs the new account
// in, its token is kept for the profile insert only; the stored session and
// the current user are left alone.
func (r *Remote) SignUp(ctx context.Context, email, password string) (*domain.Identity, error) {
	var resp signUpResponse
	err := r.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   credentialsBody{Email: email, Password: password},
		out:    &resp,
		statusErrs: map[int]error{
			http.StatusBadRequest:          domain.ErrInvalidInput,
			http.StatusConflict:            domain.ErrUserExists,
			http.StatusUnprocessableEntity: domain.ErrInvalidInput,
		},
	})
	if err != nil {
		return nil, err
	}

	if resp.AccessToken != "" && resp.ID != "" {
		expiresAt := time.Unix(resp.ExpiresAt, 0).UTC()
		if resp.ExpiresAt == 0 {
			expiresAt = r.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		}
		r.mu.Lock()
		r.pruneSignUps()
		r.signUps[resp.ID] = signUpToken{token: resp.AccessToken, expiresAt: expiresAt}
		r.mu.Unlock()
	}
	id := resp.Identity
	return &id, nil
}

// takeSignUpToken hands out, once, the token issued when userID signed up.
func (r *Remote) takeSignUpToken(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.signUps[userID]
	if !ok {
		return "", false
	}
	delete(r.signUps, userID)
	if !r.now().Before(t.expiresAt) {
		return "", false
	}
	return t.token, true
}

// pruneSignUps drops expired sign-up tokens. Callers hold r.mu.
func (r *Remote) pruneSignUps() {
	now := r.now()
	for id, t := range r.signUps {
		if !now.Before(t.expiresAt) {
			delete(r.signUps, id)
		}
	}
}

// SignOut revokes the token remotely. The stored session is dropped and
// SIGNED_OUT published whatever the remote outcome.
func (r *Remote) SignOut(ctx context.Context) error {
	session, loadErr := r.tokens.LoadSession(ctx)

	var remoteErr error
	if loadErr == nil && session != nil && !session.Expired(r.now()) {
		remoteErr = r.client.do(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			token:  session.AccessToken,
		})
		// An already revoked token is as good as a successful logout.
		if errors.Is(remoteErr, domain.ErrInvalidCredentials) {
			remoteErr = nil
		}
	}

	if err := r.tokens.ClearSession(ctx); err != nil {
		r.log.Warn().Err(err).Msg("failed to clear stored session token")
	}
	r.hub.publish(domain.SessionEvent{Type: domain.EventSignedOut})
	return remoteErr
}

// GetSession returns the stored session after confirming it with the
// identity API. An expired or rejected session is cleared and reported as
// absent.
func (r *Remote) GetSession(ctx context.Context) (*domain.Session, error) {
	session, err := r.tokens.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if session.Expired(r.now()) {
		r.dropSession(ctx)
		return nil, nil
	}

	var id domain.Identity
	err = r.client.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		token:  session.AccessToken,
		out:    &id,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			r.dropSession(ctx)
			return nil, nil
		}
		return nil, err
	}

	session.UserID = id.ID
	session.Email = id.Email
	return session, nil
}

func (r *Remote) OnSessionChange(fn func(domain.SessionEvent)) func() {
	return r.hub.subscribe(fn)
}

// AccessToken returns the stored token for authenticated REST calls, or ""
// when there is no live session.
func (r *Remote) AccessToken(ctx context.Context) string {
	session, err := r.tokens.LoadSession(ctx)
	if err != nil || session == nil || session.Expired(r.now()) {
		return ""
	}
	return session.AccessToken
}

func (r *Remote) dropSession(ctx context.Context) {
	if err := r.tokens.ClearSession(ctx); err != nil {
		r.log.Warn().Err(err).Msg("failed to clear stale session token")
	}
}
