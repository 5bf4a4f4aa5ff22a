package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/infrastructure/db/inmemory"
)

func newRemote(t *testing.T, h http.Handler) (*Remote, *inmemory.SessionCache) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tokens := inmemory.NewSessionCache()
	return NewRemote(NewClient(srv.URL, time.Second), tokens, zerolog.Nop()), tokens
}

func TestRemote_SignInStoresSessionAndPublishes(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body credentialsBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jane@example.com", body.Email)
		_ = json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "tok-1",
			TokenType:   "bearer",
			ExpiresAt:   exp,
			User:        domain.Identity{ID: "u-1", Email: "jane@example.com"},
		})
	})
	remote, tokens := newRemote(t, mux)

	var events []domain.SessionEvent
	remote.OnSessionChange(func(ev domain.SessionEvent) { events = append(events, ev) })

	s, err := remote.SignIn(context.Background(), "jane@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", s.UserID)
	assert.Equal(t, time.Unix(exp, 0).UTC(), s.ExpiresAt)

	stored, _ := tokens.LoadSession(context.Background())
	require.NotNil(t, stored)
	assert.Equal(t, "tok-1", stored.AccessToken)

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSignedIn, events[0].Type)
}

func TestRemote_SignInRejected(t *testing.T) {
	remote, _ := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
	}))

	_, err := remote.SignIn(context.Background(), "jane@example.com", "wrong")
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials), "got %v", err)
}

func TestRemote_ServerErrorIsUnavailable(t *testing.T) {
	remote, _ := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := remote.SignIn(context.Background(), "jane@example.com", "secret1")
	assert.True(t, errors.Is(err, domain.ErrRemoteUnavailable), "got %v", err)
}

func TestRemote_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	remote := NewRemote(NewClient(url, time.Second), inmemory.NewSessionCache(), zerolog.Nop())
	_, err := remote.SignIn(context.Background(), "jane@example.com", "secret1")
	assert.True(t, errors.Is(err, domain.ErrRemoteUnavailable), "got %v", err)
}

func TestRemote_SignUpConflict(t *testing.T) {
	remote, _ := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"user already exists"}`))
	}))

	_, err := remote.SignUp(context.Background(), "jane@example.com", "secret1")
	assert.True(t, errors.Is(err, domain.ErrUserExists), "got %v", err)
}

func TestRemote_SignUpTokenAuthorizesProfileInsertOnce(t *testing.T) {
	ctx := context.Background()
	var auths []string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           "u-7",
			"email":        "new@example.com",
			"access_token": "signup-tok",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/rest/v1/user_profiles", func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	})
	remote, tokens := newRemote(t, mux)

	var events []domain.SessionEvent
	remote.OnSessionChange(func(ev domain.SessionEvent) { events = append(events, ev) })

	id, err := remote.SignUp(ctx, "new@example.com", "secret12")
	require.NoError(t, err)
	assert.Equal(t, "u-7", id.ID)
	assert.Equal(t, "new@example.com", id.Email)

	stored, _ := tokens.LoadSession(ctx)
	assert.Nil(t, stored)
	assert.Empty(t, events)

	repo := NewProfileRepository(remote.client, remote)
	require.NoError(t, repo.Insert(ctx, &domain.ProfileRecord{ID: "u-7", Email: "new@example.com", Role: "patient"}))
	require.NoError(t, repo.Insert(ctx, &domain.ProfileRecord{ID: "u-7", Email: "new@example.com", Role: "patient"}))

	assert.Equal(t, []string{"Bearer signup-tok", ""}, auths)
}

func TestRemote_SignUpTokenExpires(t *testing.T) {
	remote, _ := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "u-7", "access_token": "signup-tok", "expires_in": 60})
	}))
	_, err := remote.SignUp(context.Background(), "new@example.com", "secret12")
	require.NoError(t, err)

	remote.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	_, ok := remote.takeSignUpToken("u-7")
	assert.False(t, ok)
}

func TestRemote_GetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("no stored session", func(t *testing.T) {
		remote, _ := newRemote(t, http.NotFoundHandler())
		s, err := remote.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("expired session is dropped without a call", func(t *testing.T) {
		called := false
		remote, tokens := newRemote(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
		require.NoError(t, tokens.SaveSession(ctx, &domain.Session{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute)}))

		s, err := remote.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.False(t, called)
		stored, _ := tokens.LoadSession(ctx)
		assert.Nil(t, stored)
	})

	t.Run("live session is confirmed", func(t *testing.T) {
		remote, tokens := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/user", r.URL.Path)
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(domain.Identity{ID: "u-1", Email: "jane@example.com"})
		}))
		require.NoError(t, tokens.SaveSession(ctx, &domain.Session{AccessToken: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}))

		s, err := remote.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "u-1", s.UserID)
	})

	t.Run("revoked session is cleared", func(t *testing.T) {
		remote, tokens := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		require.NoError(t, tokens.SaveSession(ctx, &domain.Session{AccessToken: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}))

		s, err := remote.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
		stored, _ := tokens.LoadSession(ctx)
		assert.Nil(t, stored)
	})
}

func TestRemote_SignOutClearsEvenOnFailure(t *testing.T) {
	ctx := context.Background()
	remote, tokens := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	require.NoError(t, tokens.SaveSession(ctx, &domain.Session{AccessToken: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}))

	var got []domain.SessionEventType
	remote.OnSessionChange(func(ev domain.SessionEvent) { got = append(got, ev.Type) })

	err := remote.SignOut(ctx)
	assert.True(t, errors.Is(err, domain.ErrRemoteUnavailable), "got %v", err)

	stored, _ := tokens.LoadSession(ctx)
	assert.Nil(t, stored)
	assert.Equal(t, []domain.SessionEventType{domain.EventSignedOut}, got)
}

func TestEventHub_Unsubscribe(t *testing.T) {
	hub := newEventHub()
	n := 0
	cancel := hub.subscribe(func(domain.SessionEvent) { n++ })

	hub.publish(domain.SessionEvent{Type: domain.EventSignedOut})
	cancel()
	cancel()
	hub.publish(domain.SessionEvent{Type: domain.EventSignedOut})

	assert.Equal(t, 1, n)
}

func TestProfileRepository_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/user_profiles/u-9", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"profile not found"}`))
	}))
	defer srv.Close()

	repo := NewProfileRepository(NewClient(srv.URL, time.Second), staticToken("tok"))
	_, err := repo.FindByID(context.Background(), "u-9")
	assert.True(t, errors.Is(err, domain.ErrProfileNotFound), "got %v", err)
}

func TestProfileRepository_UpdateSendsOnlySetFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"first_name": "Janet"}, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	name := "Janet"
	repo := NewProfileRepository(NewClient(srv.URL, time.Second), staticToken("tok"))
	require.NoError(t, repo.Update(context.Background(), "u-1", domain.ProfileFields{FirstName: &name}))
}

type staticToken string

func (s staticToken) AccessToken(context.Context) string { return string(s) }
