package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pyramid-aftercare/portal/internal/api/middleware"
	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// ctxClaims extracts the claims injected by SessionAuth. A token without a
// subject is structurally valid but unusable, so it is rejected with 401.
func ctxClaims(c echo.Context) (*domain.Claims, error) {
	claims, _ := c.Get(middleware.ClaimsKey).(*domain.Claims)
	if claims == nil || claims.UserID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}

// canAccessProfile allows a caller to reach their own profile, and admins to
// reach any.
func canAccessProfile(claims *domain.Claims, id string) bool {
	return claims.UserID == id || claims.Role == domain.RoleAdmin
}
