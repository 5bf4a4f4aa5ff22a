package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// RBAC admits requests whose verified role is one of allowed. It must run
// after SessionAuth; a request without claims is answered 401.
func RBAC(allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(ClaimsKey).(*domain.Claims)
			if !ok || claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}
			for _, r := range allowed {
				if claims.Role == r && r.Valid() {
					return next(c)
				}
			}
			return fmt.Errorf("%w: role %q", domain.ErrForbidden, claims.Role)
		}
	}
}
