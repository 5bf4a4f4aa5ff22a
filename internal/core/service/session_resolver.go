package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
	"github.com/pyramid-aftercare/portal/internal/pkg/metrics"
)

// ResolveState is the lifecycle state of the current-user cell.
type ResolveState string

const (
	StateUninitialized ResolveState = "uninitialized"
	StateResolving     ResolveState = "resolving"
	StateResolved      ResolveState = "resolved"
)

// Snapshot is a read-only view of the resolver's state.
type Snapshot struct {
	State ResolveState
	User  *domain.UserRecord
}

// Authenticated reports whether the snapshot holds an active, valid user.
func (s Snapshot) Authenticated() bool { return s.User.Authenticated() }

// SessionResolver owns the single current-user value of the application. It
// combines the credential store, the profile store, the local session cache
// and the demo identity table into one UserRecord (or nil).
//
// Operations may run concurrently. The state cell is locked only for memory
// safety; whichever resolution finishes last wins. WithStaleGuard tightens
// this so a resolution that started before an already-committed one is
// dropped.
type SessionResolver struct {
	creds    ports.CredentialStore
	profiles ports.ProfileStore
	cache    ports.SessionCache
	demo     *DemoIdentities
	log      zerolog.Logger
	now      func() time.Time

	staleGuard bool

	mu         sync.Mutex
	state      ResolveState
	user       *domain.UserRecord
	inFlight   int
	generation uint64 // last started resolution
	committed  uint64 // resolution that produced the current user
	subs       map[int]func(Snapshot)
	nextSub    int

	// selfInitiated is non-zero while the resolver itself is calling the
	// credential store; events raised by those calls are ignored.
	selfInitiated atomic.Int32
	unsubscribe   func()
}

// ResolverOption customises a SessionResolver.
type ResolverOption func(*SessionResolver)

// WithDemoIdentities replaces the demo table. Pass nil to disable the
// demo fallback.
func WithDemoIdentities(d *DemoIdentities) ResolverOption {
	return func(r *SessionResolver) { r.demo = d }
}

// WithStaleGuard drops resolutions that were overtaken by a newer one.
func WithStaleGuard() ResolverOption {
	return func(r *SessionResolver) { r.staleGuard = true }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *SessionResolver) { r.now = now }
}

func NewSessionResolver(
	creds ports.CredentialStore,
	profiles ports.ProfileStore,
	cache ports.SessionCache,
	log zerolog.Logger,
	opts ...ResolverOption,
) *SessionResolver {
	r := &SessionResolver{
		creds:    creds,
		profiles: profiles,
		cache:    cache,
		demo:     NewDemoIdentities(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		state:    StateUninitialized,
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.demo != nil {
		r.log.Warn().Msg("demo identity table enabled: not for deployments handling real credentials or health data")
	}
	return r
}

// ── Read side ────────────────────────────────────────────────────────────────

// Current returns a copy of the current user, or nil.
func (r *SessionResolver) Current() *domain.UserRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.user.Clone()
}

// Snapshot returns the current state and user.
func (r *SessionResolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// IsAuthenticated reports whether an active user is resolved.
func (r *SessionResolver) IsAuthenticated() bool {
	return r.Current().Authenticated()
}

// Subscribe registers fn to receive every state change and returns a
// function that removes it. fn is called synchronously and must not block.
func (r *SessionResolver) Subscribe(fn func(Snapshot)) (cancel func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// ── Operations ───────────────────────────────────────────────────────────────

// Bootstrap resolves the user at process start: live remote session first,
// then the local cache. It never fails; with no source the user is nil.
func (r *SessionResolver) Bootstrap(ctx context.Context) *domain.UserRecord {
	g := r.begin()
	user, source := r.runChain(ctx, "bootstrap", []strategy{
		r.remoteSessionStrategy(),
		r.cacheStrategy(),
	})
	r.commit(ctx, g, user, false)
	metrics.SessionResolutionsTotal.WithLabelValues("bootstrap", source).Inc()
	return user.Clone()
}

// Login authenticates against the credential store and falls back to the
// demo table. On failure the previously resolved user is left untouched and
// domain.ErrLoginFailed is returned whatever the cause.
func (r *SessionResolver) Login(ctx context.Context, email, password string) (*domain.UserRecord, error) {
	g := r.begin()
	user, source := r.runChain(ctx, "login", []strategy{
		r.credentialStrategy(email, password),
		r.demoStrategy(email, password),
	})
	if user == nil {
		r.abandon(g)
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		return nil, domain.ErrLoginFailed
	}

	now := r.now()
	user.LastLogin = &now

	r.commit(ctx, g, user, false)
	metrics.LoginAttemptsTotal.WithLabelValues(source).Inc()
	metrics.SessionResolutionsTotal.WithLabelValues("login", source).Inc()
	r.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Str("source", source).Msg("login succeeded")
	return user.Clone(), nil
}

// Logout signs out remotely and always clears the local state, even when the
// remote call fails.
func (r *SessionResolver) Logout(ctx context.Context) {
	g := r.begin()

	r.selfInitiated.Add(1)
	err := r.creds.SignOut(ctx)
	r.selfInitiated.Add(-1)

	if err != nil {
		metrics.LogoutsTotal.WithLabelValues("error").Inc()
		r.log.Warn().Err(err).Msg("remote sign-out failed, clearing local session anyway")
	} else {
		metrics.LogoutsTotal.WithLabelValues("ok").Inc()
	}

	r.commit(ctx, g, nil, true)
	metrics.SessionResolutionsTotal.WithLabelValues("logout", sourceNone).Inc()
}

// Register creates a credential-store identity and then its profile keyed by
// the identity id. When the profile write fails the identity is left in
// place and domain.ErrRegistrationIncomplete is returned. Register does not
// change the current user.
func (r *SessionResolver) Register(ctx context.Context, nu domain.NewUser) (*domain.Identity, error) {
	nu.Email = strings.TrimSpace(nu.Email)
	if nu.Email == "" || nu.Password == "" {
		return nil, fmt.Errorf("register: %w", domain.ErrInvalidInput)
	}
	if nu.Role == "" {
		nu.Role = domain.RolePatient
	}
	if !nu.Role.Valid() {
		return nil, fmt.Errorf("register: %w: unknown role %q", domain.ErrInvalidInput, nu.Role)
	}

	r.selfInitiated.Add(1)
	identity, err := r.creds.SignUp(ctx, nu.Email, nu.Password)
	r.selfInitiated.Add(-1)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("identity_failed").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	record := &domain.UserRecord{
		ID:          identity.ID,
		Email:       nu.Email,
		FirstName:   nu.FirstName,
		LastName:    nu.LastName,
		Role:        nu.Role,
		IsActive:    true,
		PhoneNumber: nu.PhoneNumber,
		DateOfBirth: nu.DateOfBirth,
		Address:     nu.Address,
		Insurance:   nu.Insurance,
		CreatedAt:   r.now(),
		Source:      domain.SourceProfile,
	}
	if err := r.profiles.CreateProfile(ctx, record); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("profile_failed").Inc()
		r.log.Error().Err(err).
			Str("identity_id", identity.ID).
			Msg("profile creation failed, identity left without a profile")
		return nil, fmt.Errorf("%w: %w", domain.ErrRegistrationIncomplete, err)
	}

	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	r.log.Info().Str("user_id", identity.ID).Str("role", string(nu.Role)).Msg("user registered")
	return identity, nil
}

// UpdateProfile writes the editable fields of upd for the current user and
// merges them into the in-memory record. ID, email and role are never
// changed through this path. Demo users are updated locally only.
func (r *SessionResolver) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (*domain.UserRecord, error) {
	current := r.Current()
	if !current.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	if upd.ID != nil || upd.Email != nil || upd.Role != nil {
		r.log.Debug().Str("user_id", current.ID).Msg("ignoring immutable fields in profile update")
	}
	fields := upd.ProfileFields

	if current.Source != domain.SourceDemo {
		if err := r.profiles.WriteProfile(ctx, current.ID, fields); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	r.mu.Lock()
	if r.user == nil || r.user.ID != current.ID {
		r.mu.Unlock()
		return nil, domain.ErrNotAuthenticated
	}
	merged := r.user.Clone()
	fields.ApplyTo(merged)
	r.user = merged
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	r.notify(subs, snap)
	r.writeCache(ctx, merged)
	return merged.Clone(), nil
}

// Start subscribes to credential-store session changes. ctx bounds the
// profile reads those events trigger.
func (r *SessionResolver) Start(ctx context.Context) {
	unsubscribe := r.creds.OnSessionChange(func(ev domain.SessionEvent) {
		r.handleEvent(ctx, ev)
	})
	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
}

// Stop removes the session-change subscription.
func (r *SessionResolver) Stop() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (r *SessionResolver) handleEvent(ctx context.Context, ev domain.SessionEvent) {
	if r.selfInitiated.Load() > 0 {
		r.log.Debug().Str("event", string(ev.Type)).Msg("ignoring self-initiated session event")
		return
	}

	switch ev.Type {
	case domain.EventSignedOut:
		g := r.begin()
		r.commit(ctx, g, nil, false)
		metrics.SessionResolutionsTotal.WithLabelValues("event", sourceNone).Inc()
	case domain.EventSignedIn, domain.EventTokenRefreshed, domain.EventUserUpdated:
		if ev.Session == nil {
			return
		}
		g := r.begin()
		user, err := r.profiles.ReadProfile(ctx, ev.Session.UserID)
		if err != nil {
			r.log.Warn().Err(err).Str("event", string(ev.Type)).Msg("profile reload after session event failed")
			r.abandon(g)
			return
		}
		r.commit(ctx, g, user, false)
		metrics.SessionResolutionsTotal.WithLabelValues("event", strategyRemoteSession).Inc()
	}
}

// ── Strategies ───────────────────────────────────────────────────────────────

func (r *SessionResolver) remoteSessionStrategy() strategy {
	return strategy{name: strategyRemoteSession, run: func(ctx context.Context) outcome {
		session, err := r.creds.GetSession(ctx)
		if err != nil {
			return failed(err)
		}
		if session == nil {
			return notApplicable()
		}
		user, err := r.profiles.ReadProfile(ctx, session.UserID)
		if err != nil {
			return failed(err)
		}
		return resolved(user)
	}}
}

func (r *SessionResolver) cacheStrategy() strategy {
	return strategy{name: strategyLocalCache, run: func(ctx context.Context) outcome {
		user, err := r.cache.Load(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrCacheCorrupt) {
				if clearErr := r.cache.Clear(ctx); clearErr != nil {
					r.log.Warn().Err(clearErr).Msg("failed to delete corrupt session cache entry")
				}
			}
			return failed(err)
		}
		if user == nil {
			return notApplicable()
		}
		if !user.Role.Valid() {
			if clearErr := r.cache.Clear(ctx); clearErr != nil {
				r.log.Warn().Err(clearErr).Msg("failed to delete cached session with unknown role")
			}
			return failed(fmt.Errorf("%w: cached role %q", domain.ErrCacheCorrupt, user.Role))
		}
		return resolved(user)
	}}
}

func (r *SessionResolver) credentialStrategy(email, password string) strategy {
	return strategy{name: strategyCredentialStore, run: func(ctx context.Context) outcome {
		if email == "" || password == "" {
			return notApplicable()
		}

		r.selfInitiated.Add(1)
		session, err := r.creds.SignIn(ctx, email, password)
		r.selfInitiated.Add(-1)
		if err != nil {
			return failed(err)
		}
		if session == nil {
			return failed(domain.ErrInvalidCredentials)
		}

		user, err := r.profiles.ReadProfile(ctx, session.UserID)
		if err != nil {
			return failed(err)
		}
		if !user.IsActive {
			// Drop the session just issued so a later Bootstrap cannot
			// resolve the deactivated account from it.
			r.selfInitiated.Add(1)
			signOutErr := r.creds.SignOut(ctx)
			r.selfInitiated.Add(-1)
			if signOutErr != nil {
				r.log.Warn().Err(signOutErr).Str("user_id", user.ID).Msg("sign-out of inactive profile failed")
			}
			return failed(fmt.Errorf("%w: %s", domain.ErrProfileInactive, user.ID))
		}
		return resolved(user)
	}}
}

func (r *SessionResolver) demoStrategy(email, password string) strategy {
	return strategy{name: strategyDemoTable, run: func(context.Context) outcome {
		if r.demo == nil {
			return notApplicable()
		}
		user, ok := r.demo.Lookup(email, password)
		if !ok {
			return notApplicable()
		}
		return resolved(user)
	}}
}

// ── State cell ───────────────────────────────────────────────────────────────

func (r *SessionResolver) begin() uint64 {
	r.mu.Lock()
	r.generation++
	g := r.generation
	r.inFlight++
	r.state = StateResolving
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	r.notify(subs, snap)
	return g
}

// commit replaces the current user with user (nil included) and writes the
// change through to the cache. force bypasses the stale guard.
func (r *SessionResolver) commit(ctx context.Context, g uint64, user *domain.UserRecord, force bool) {
	r.mu.Lock()
	r.inFlight--
	if r.staleGuard && !force && g < r.committed {
		r.log.Debug().Uint64("generation", g).Uint64("committed", r.committed).Msg("dropping stale resolution")
		r.settleLocked()
		snap := r.snapshotLocked()
		subs := r.subscribersLocked()
		r.mu.Unlock()
		r.notify(subs, snap)
		return
	}
	if g > r.committed {
		r.committed = g
	}
	r.user = user.Clone()
	r.settleLocked()
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	r.notify(subs, snap)
	r.writeCache(ctx, user)
}

// abandon ends a resolution without touching the current user.
func (r *SessionResolver) abandon(g uint64) {
	r.mu.Lock()
	r.inFlight--
	r.settleLocked()
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	r.notify(subs, snap)
}

func (r *SessionResolver) settleLocked() {
	if r.inFlight > 0 {
		r.state = StateResolving
		return
	}
	r.state = StateResolved
}

func (r *SessionResolver) snapshotLocked() Snapshot {
	return Snapshot{State: r.state, User: r.user.Clone()}
}

func (r *SessionResolver) subscribersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(r.subs))
	for _, fn := range r.subs {
		out = append(out, fn)
	}
	return out
}

func (r *SessionResolver) notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(Snapshot{State: snap.State, User: snap.User.Clone()})
	}
}

func (r *SessionResolver) writeCache(ctx context.Context, user *domain.UserRecord) {
	if user == nil {
		if err := r.cache.Clear(ctx); err != nil {
			r.log.Warn().Err(err).Msg("failed to clear session cache")
		}
		return
	}
	if err := r.cache.Save(ctx, user); err != nil {
		r.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to write session cache")
	}
}
