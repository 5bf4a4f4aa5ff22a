package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
	"github.com/pyramid-aftercare/portal/internal/pkg/metrics"
)

const minPasswordLength = 6

// IdentityService implements sign-up, sign-in and token handling for the
// identity API.
type IdentityService struct {
	repo      ports.IdentityRepository
	profiles  ports.ProfileRepository // optional, supplies the role claim
	revoker   ports.TokenRevoker
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewIdentityService(
	repo ports.IdentityRepository,
	profiles ports.ProfileRepository,
	revoker ports.TokenRevoker,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *IdentityService {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &IdentityService{
		repo:      repo,
		profiles:  profiles,
		revoker:   revoker,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdentityService) SignUp(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || len(password) < minPasswordLength {
		return nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	ic := &ports.IdentityCredentials{
		Identity: domain.Identity{
			ID:        uuid.NewString(),
			Email:     email,
			CreatedAt: s.now(),
		},
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, ic); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", ic.ID).Msg("identity created")
	identity := ic.Identity
	return &identity, nil
}

func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	ic, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same answer as a bad password so account existence does not leak.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(ic.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	session, err := s.issueToken(ctx, &ic.Identity)
	if err != nil {
		return nil, err
	}
	metrics.TokensIssuedTotal.Inc()
	return session, nil
}

// SignOut revokes token until its natural expiry.
func (s *IdentityService) SignOut(ctx context.Context, token string) error {
	claims, err := s.Verify(ctx, token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Verify parses token and checks it has not been revoked.
func (s *IdentityService) Verify(ctx context.Context, token string) (*domain.Claims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}

	out := &domain.Claims{}
	out.TokenID, _ = claims["jti"].(string)
	out.UserID, _ = claims["sub"].(string)
	out.Email, _ = claims["email"].(string)
	role, _ := claims["role"].(string)
	out.Role = domain.Role(role)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if out.TokenID == "" || out.UserID == "" {
		return nil, domain.ErrInvalidToken
	}

	revoked, err := s.revoker.IsRevoked(ctx, out.TokenID)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if revoked {
		return nil, domain.ErrInvalidToken
	}
	return out, nil
}

func (s *IdentityService) GetIdentity(ctx context.Context, id string) (*domain.Identity, error) {
	ic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	identity := ic.Identity
	return &identity, nil
}

func (s *IdentityService) issueToken(ctx context.Context, id *domain.Identity) (*domain.Session, error) {
	now := s.now()
	exp := now.Add(s.tokenTTL)

	claims := jwt.MapClaims{
		"sub":   id.ID,
		"email": id.Email,
		"role":  string(s.roleFor(ctx, id.ID)),
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   time.Unix(exp.Unix(), 0).UTC(),
		UserID:      id.ID,
		Email:       id.Email,
	}, nil
}

// roleFor looks up the profile role. A missing profile yields an empty role,
// which RBAC treats as no privileges.
func (s *IdentityService) roleFor(ctx context.Context, id string) domain.Role {
	if s.profiles == nil {
		return ""
	}
	p, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			s.log.Warn().Err(err).Str("user_id", id).Msg("role lookup failed, issuing token without role")
		}
		return ""
	}
	return domain.Role(p.Role)
}
