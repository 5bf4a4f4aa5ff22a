package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
	"github.com/pyramid-aftercare/portal/internal/pkg/metrics"
)

// ProfileAdapter translates between profile rows and UserRecord and stamps
// last_login after each successful read.
type ProfileAdapter struct {
	repo    ports.ProfileRepository
	stamper ports.LastLoginStamper
	log     zerolog.Logger
	now     func() time.Time
}

var _ ports.ProfileStore = (*ProfileAdapter)(nil)

func NewProfileAdapter(repo ports.ProfileRepository, log zerolog.Logger) *ProfileAdapter {
	return &ProfileAdapter{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithStamper hands last_login writes to s instead of writing them inline.
func (a *ProfileAdapter) WithStamper(s ports.LastLoginStamper) *ProfileAdapter {
	a.stamper = s
	return a
}

// ReadProfile loads the profile for id. The returned record carries the
// last_login value as read; the new stamp is written best-effort afterwards.
func (a *ProfileAdapter) ReadProfile(ctx context.Context, id string) (*domain.UserRecord, error) {
	row, err := a.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("read profile: %w", domain.ErrProfileNotFound)
	}
	if !domain.Role(row.Role).Valid() {
		return nil, fmt.Errorf("read profile %s: %w (role %q)", id, domain.ErrInvalidProfile, row.Role)
	}

	user := row.ToUserRecord()

	if a.stamper != nil {
		a.stamper.Stamp(id, a.now())
	} else if err := a.repo.TouchLastLogin(ctx, id, a.now()); err != nil {
		metrics.LastLoginStampFailuresTotal.Inc()
		a.log.Warn().Err(err).Str("user_id", id).Msg("failed to stamp last_login")
	}

	return user, nil
}

func (a *ProfileAdapter) WriteProfile(ctx context.Context, id string, fields domain.ProfileFields) error {
	if fields.Empty() {
		return nil
	}
	if err := a.repo.Update(ctx, id, fields); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (a *ProfileAdapter) CreateProfile(ctx context.Context, u *domain.UserRecord) error {
	if u == nil || u.ID == "" || !u.Role.Valid() {
		return fmt.Errorf("create profile: %w", domain.ErrInvalidProfile)
	}
	if err := a.repo.Insert(ctx, domain.ProfileRecordFrom(u)); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}
