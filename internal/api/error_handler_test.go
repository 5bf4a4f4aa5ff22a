package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"wrapped not found", fmt.Errorf("read: %w", domain.ErrProfileNotFound), http.StatusNotFound, `{"error":"profile not found"}`},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, `{"error":"access forbidden"}`},
		{"invalid input keeps detail", fmt.Errorf("%w: email is required", domain.ErrInvalidInput), http.StatusBadRequest, `{"error":"invalid input: email is required"}`},
		{"remote down", domain.ErrRemoteUnavailable, http.StatusServiceUnavailable, `{"error":"upstream unavailable"}`},
		{"echo error", echo.NewHTTPError(http.StatusTeapot, "short and stout"), http.StatusTeapot, `{"error":"short and stout"}`},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var logs bytes.Buffer
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)

			NewHTTPErrorHandler(zerolog.New(&logs))(tc.err, c)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.JSONEq(t, tc.wantBody, rec.Body.String())
			if tc.wantCode == http.StatusInternalServerError {
				assert.Contains(t, logs.String(), "db exploded", "internal cause is logged")
				assert.NotContains(t, rec.Body.String(), "db exploded", "internal cause is not leaked")
			} else {
				assert.Empty(t, logs.String())
			}
		})
	}
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/x", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrUserNotFound, c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}
