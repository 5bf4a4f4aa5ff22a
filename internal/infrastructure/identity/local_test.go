package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/service"
	"github.com/pyramid-aftercare/portal/internal/infrastructure/db/inmemory"
)

func newLocal(t *testing.T) (*Local, *inmemory.SessionCache) {
	t.Helper()
	svc := service.NewIdentityService(
		inmemory.NewIdentityRepository(),
		nil,
		inmemory.NewTokenRevoker(),
		"test-secret",
		time.Hour,
		zerolog.Nop(),
	)
	tokens := inmemory.NewSessionCache()
	return NewLocal(svc, tokens, zerolog.Nop()), tokens
}

func TestLocal_SignUpSignInSignOut(t *testing.T) {
	ctx := context.Background()
	local, tokens := newLocal(t)

	id, err := local.SignUp(ctx, "jane@example.com", "secret1")
	require.NoError(t, err)

	s, err := local.SignIn(ctx, "jane@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id.ID, s.UserID)

	live, err := local.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, id.ID, live.UserID)

	require.NoError(t, local.SignOut(ctx))
	stored, _ := tokens.LoadSession(ctx)
	assert.Nil(t, stored)

	live, err = local.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, live)
}

func TestLocal_RevokedTokenIsNotASession(t *testing.T) {
	ctx := context.Background()
	local, tokens := newLocal(t)

	_, err := local.SignUp(ctx, "jane@example.com", "secret1")
	require.NoError(t, err)
	s, err := local.SignIn(ctx, "jane@example.com", "secret1")
	require.NoError(t, err)

	// Revoke behind the adapter's back, then restore the stored copy.
	require.NoError(t, local.SignOut(ctx))
	require.NoError(t, tokens.SaveSession(ctx, s))

	live, err := local.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, live)
}

func TestLocal_BadPassword(t *testing.T) {
	ctx := context.Background()
	local, _ := newLocal(t)

	_, err := local.SignUp(ctx, "jane@example.com", "secret1")
	require.NoError(t, err)

	_, err = local.SignIn(ctx, "jane@example.com", "nope")
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
}

func TestOffline_AlwaysUnavailable(t *testing.T) {
	ctx := context.Background()
	var o Offline

	_, err := o.SignIn(ctx, "a@b.c", "x")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	_, err = o.GetSession(ctx)
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.ErrorIs(t, o.SignOut(ctx), domain.ErrRemoteUnavailable)
	o.OnSessionChange(func(domain.SessionEvent) {})()
}
