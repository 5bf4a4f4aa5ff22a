package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/pyramid-aftercare/portal/internal/api/docs"
	"github.com/pyramid-aftercare/portal/internal/api/handler"
	"github.com/pyramid-aftercare/portal/internal/api/middleware"
	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// NewSiteRouter serves the built single-page application from staticDir.
// Unknown paths fall back to index.html so client-side routes resolve.
func NewSiteRouter(staticDir string, log zerolog.Logger) *echo.Echo {
	e := newEcho(log)

	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.Use(echomiddleware.StaticWithConfig(echomiddleware.StaticConfig{
		Root:  staticDir,
		Index: "index.html",
		HTML5: true,
	}))

	return e
}

// IdentityDeps are the collaborators of the identity API.
type IdentityDeps struct {
	Identity ports.IdentityService
	Profiles ports.ProfileRepository
	Checks   []handler.DependencyCheck
	Log      zerolog.Logger
}

// NewIdentityRouter builds the identity and profile API.
func NewIdentityRouter(deps IdentityDeps) *echo.Echo {
	e := newEcho(deps.Log)
	e.Validator = handler.NewValidator()

	sessionAuth := middleware.NewSessionAuth(deps.Identity, 0)
	requireAuth := sessionAuth.Handler()

	identityHandler := handler.NewIdentityHandler(deps.Identity, sessionAuth)
	profileHandler := handler.NewProfileHandler(deps.Profiles)

	// --- Auth routes ---
	auth := e.Group("/auth/v1")
	auth.POST("/signup", identityHandler.SignUp)
	auth.POST("/token", identityHandler.Token)
	auth.POST("/logout", identityHandler.Logout)
	auth.GET("/user", identityHandler.User, requireAuth)

	// --- Profile routes ---
	profiles := e.Group("/rest/v1/user_profiles", requireAuth)
	profiles.GET("", profileHandler.List, middleware.RBAC(domain.RoleAdmin, domain.RoleProvider))
	profiles.POST("", profileHandler.Create)
	profiles.GET("/:id", profileHandler.Get)
	profiles.PATCH("/:id", profileHandler.Patch)
	profiles.PATCH("/:id/last_login", profileHandler.TouchLastLogin)

	// --- Health checks and docs (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)                         // liveness
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Checks...).Readiness) // readiness
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func newEcho(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))

	return e
}
