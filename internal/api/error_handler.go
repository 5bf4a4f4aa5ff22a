package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// domainStatus maps domain errors to replies. An empty message means the
// error's own text is safe to return.
var domainStatus = []struct {
	err  error
	code int
	msg  string
}{
	{domain.ErrProfileNotFound, http.StatusNotFound, "profile not found"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
	{domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
	{domain.ErrInvalidToken, http.StatusUnauthorized, "invalid token"},
	{domain.ErrNotAuthenticated, http.StatusUnauthorized, "not authenticated"},
	{domain.ErrUserExists, http.StatusConflict, "user already exists"},
	{domain.ErrInvalidInput, http.StatusBadRequest, ""},
	{domain.ErrInvalidProfile, http.StatusBadRequest, ""},
	{domain.ErrRemoteUnavailable, http.StatusServiceUnavailable, "upstream unavailable"},
}

// NewHTTPErrorHandler renders every error as {"error": "..."}. Unknown
// errors are logged with the request id and answered with a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := statusFor(err)
		if code == http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("route", c.Path()).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}
	for _, m := range domainStatus {
		if errors.Is(err, m.err) {
			if m.msg == "" {
				return m.code, err.Error()
			}
			return m.code, m.msg
		}
	}
	return http.StatusInternalServerError, "internal server error"
}
