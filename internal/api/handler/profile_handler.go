package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// ProfileHandler serves the user_profiles resource.
type ProfileHandler struct {
	repo ports.ProfileRepository
	now  func() time.Time
}

func NewProfileHandler(repo ports.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// List returns every profile, optionally filtered by role.
//
// @Summary      List profiles
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        role  query     string  false  "patient, admin or provider"
// @Success      200   {array}   domain.ProfileRecord
// @Failure      403   {object}  map[string]string
// @Router       /rest/v1/user_profiles [get]
func (h *ProfileHandler) List(c echo.Context) error {
	role := domain.Role(c.QueryParam("role"))
	if role != "" && !role.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be one of: patient admin provider")
	}

	rows, err := h.repo.List(c.Request().Context(), role)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []*domain.ProfileRecord{}
	}
	return c.JSON(http.StatusOK, rows)
}

// Get returns one profile.
//
// @Summary      Get a profile
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Identity id"
// @Success      200  {object}  domain.ProfileRecord
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /rest/v1/user_profiles/{id} [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if !canAccessProfile(claims, id) {
		return domain.ErrForbidden
	}

	p, err := h.repo.FindByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Create inserts the caller's own profile.
//
// @Summary      Create a profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createProfileRequest  true  "Profile row"
// @Success      201   {object}  domain.ProfileRecord
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /rest/v1/user_profiles [post]
func (h *ProfileHandler) Create(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req createProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !canAccessProfile(claims, req.ID) {
		return domain.ErrForbidden
	}

	p := req.toRecord(h.now())
	if err := h.repo.Insert(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// Patch updates the editable fields of a profile.
//
// @Summary      Update a profile
// @Tags         profiles
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string                true  "Identity id"
// @Param        body  body  domain.ProfileFields  true  "Fields to change"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /rest/v1/user_profiles/{id} [patch]
func (h *ProfileHandler) Patch(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if !canAccessProfile(claims, id) {
		return domain.ErrForbidden
	}

	var fields domain.ProfileFields
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.repo.Update(c.Request().Context(), id, fields); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// TouchLastLogin records a login time on a profile.
//
// @Summary      Stamp last login
// @Tags         profiles
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string            true  "Identity id"
// @Param        body  body  lastLoginRequest  true  "Login time"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /rest/v1/user_profiles/{id}/last_login [patch]
func (h *ProfileHandler) TouchLastLogin(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if !canAccessProfile(claims, id) {
		return domain.ErrForbidden
	}

	var req lastLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.LastLogin.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "last_login is required")
	}
	if err := h.repo.TouchLastLogin(c.Request().Context(), id, req.LastLogin.UTC()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
