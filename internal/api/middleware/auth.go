package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/labstack/echo/v4"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// Context keys set by SessionAuth.
const (
	ClaimsKey = "claims"
	RoleKey   = "role"
	UserIDKey = "user_id"
)

const (
	defaultCacheSize = 1024
	maxCacheTTL      = time.Minute
)

// TokenVerifier checks an access token, including revocation.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Claims, error)
}

// SessionAuth validates bearer tokens and injects their claims into the echo
// context. Verified claims are kept in an LRU for at most a minute, or less
// when the token expires sooner.
type SessionAuth struct {
	verifier TokenVerifier
	cache    gcache.Cache
	now      func() time.Time
}

func NewSessionAuth(verifier TokenVerifier, cacheSize int) *SessionAuth {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	return &SessionAuth{
		verifier: verifier,
		cache:    gcache.New(cacheSize).LRU().Build(),
		now:      time.Now,
	}
}

// Handler returns the echo middleware.
func (a *SessionAuth) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c)
			if err != nil {
				return err
			}

			claims, err := a.claims(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(ClaimsKey, claims)
			c.Set(RoleKey, string(claims.Role))
			c.Set(UserIDKey, claims.UserID)
			return next(c)
		}
	}
}

// Invalidate drops token from the verified-claims cache. Call it after the
// token has been revoked.
func (a *SessionAuth) Invalidate(token string) {
	a.cache.Remove(token)
}

func (a *SessionAuth) claims(ctx context.Context, token string) (*domain.Claims, error) {
	if v, err := a.cache.Get(token); err == nil {
		claims := v.(*domain.Claims)
		if a.now().Before(claims.ExpiresAt) {
			return claims, nil
		}
		a.cache.Remove(token)
	}

	claims, err := a.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		return nil, err
	}

	ttl := claims.ExpiresAt.Sub(a.now())
	if ttl > maxCacheTTL {
		ttl = maxCacheTTL
	}
	if ttl > 0 {
		_ = a.cache.SetWithExpire(token, claims, ttl)
	}
	return claims, nil
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}
