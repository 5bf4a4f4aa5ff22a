package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pyramid-aftercare/portal/internal/api/middleware"
	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// TokenInvalidator forgets cached verification results for a token.
type TokenInvalidator interface {
	Invalidate(token string)
}

type IdentityHandler struct {
	svc   ports.IdentityService
	cache TokenInvalidator
	now   func() time.Time
}

func NewIdentityHandler(svc ports.IdentityService, cache TokenInvalidator) *IdentityHandler {
	return &IdentityHandler{svc: svc, cache: cache, now: time.Now}
}

// SignUp creates a credential-store identity and signs it in, so the caller
// can insert the profile row under the new account.
//
// @Summary      Create an identity
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Email and password"
// @Success      200   {object}  signUpResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/v1/signup [post]
func (h *IdentityHandler) SignUp(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	id, err := h.svc.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	resp := signUpResponse{identityResponse: toIdentityResponse(id)}
	// The identity exists either way; a failed sign-in only leaves the
	// response without a session.
	if s, err := h.svc.SignIn(ctx, req.Email, req.Password); err == nil {
		resp.AccessToken = s.AccessToken
		resp.TokenType = s.TokenType
		resp.ExpiresIn = h.expiresIn(s)
		resp.ExpiresAt = s.ExpiresAt.Unix()
		resp.User = &resp.identityResponse
	}
	return c.JSON(http.StatusOK, resp)
}

// Token exchanges email and password for an access token.
//
// @Summary      Password grant
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        grant_type  query     string        true  "must be password"
// @Param        body        body      tokenRequest  true  "Login credentials"
// @Success      200         {object}  tokenResponse
// @Failure      400         {object}  map[string]string
// @Failure      401         {object}  map[string]string
// @Router       /auth/v1/token [post]
func (h *IdentityHandler) Token(c echo.Context) error {
	if gt := c.QueryParam("grant_type"); gt != "password" {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported grant_type")
	}

	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s, err := h.svc.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		ExpiresIn:   h.expiresIn(s),
		ExpiresAt:   s.ExpiresAt.Unix(),
		User:        identityResponse{ID: s.UserID, Email: s.Email},
	})
}

// Logout revokes the bearer token.
//
// @Summary      Revoke the current token
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  map[string]string
// @Router       /auth/v1/logout [post]
func (h *IdentityHandler) Logout(c echo.Context) error {
	token, err := middleware.BearerToken(c)
	if err != nil {
		return err
	}
	if err := h.svc.SignOut(c.Request().Context(), token); err != nil {
		return err
	}
	h.cache.Invalidate(token)
	return c.NoContent(http.StatusNoContent)
}

// User returns the identity behind the bearer token.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/v1/user [get]
func (h *IdentityHandler) User(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := h.svc.GetIdentity(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "identity no longer exists")
		}
		return err
	}
	return c.JSON(http.StatusOK, toIdentityResponse(id))
}

func (h *IdentityHandler) expiresIn(s *domain.Session) int64 {
	secs := int64(s.ExpiresAt.Sub(h.now()).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
