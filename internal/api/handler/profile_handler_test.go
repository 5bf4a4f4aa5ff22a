package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pyramid-aftercare/portal/internal/api/middleware"
	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/infrastructure/db/inmemory"
)

func seededRepo(t *testing.T) *inmemory.ProfileRepository {
	t.Helper()
	repo := inmemory.NewProfileRepository()
	for _, p := range []*domain.ProfileRecord{
		{ID: "u-1", Email: "jane@example.com", FirstName: "Jane", Role: "patient", IsActive: true, CreatedAt: time.Unix(100, 0).UTC()},
		{ID: "u-2", Email: "sam@example.com", FirstName: "Sam", Role: "provider", IsActive: true, CreatedAt: time.Unix(200, 0).UTC()},
	} {
		if err := repo.Insert(context.Background(), p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return repo
}

func withClaims(c echo.Context, id string, role domain.Role) {
	c.Set(middleware.ClaimsKey, &domain.Claims{UserID: id, Role: role})
}

func TestProfileHandler_Get_Own(t *testing.T) {
	e := newTestEcho()
	h := NewProfileHandler(seededRepo(t))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("u-1")
	withClaims(c, "u-1", domain.RolePatient)

	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var p domain.ProfileRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if p.FirstName != "Jane" || p.Role != "patient" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestProfileHandler_Get_OtherUserForbidden(t *testing.T) {
	e := newTestEcho()
	h := NewProfileHandler(seededRepo(t))

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("u-2")
	withClaims(c, "u-1", domain.RolePatient)

	if err := h.Get(c); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestProfileHandler_Get_AdminSeesAny(t *testing.T) {
	e := newTestEcho()
	h := NewProfileHandler(seededRepo(t))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("u-2")
	withClaims(c, "a-1", domain.RoleAdmin)

	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProfileHandler_Patch(t *testing.T) {
	e := newTestEcho()
	repo := seededRepo(t)
	h := NewProfileHandler(repo)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/", `{"first_name":"Janet","address":{"city":"Salem"}}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("u-1")
	withClaims(c, "u-1", domain.RolePatient)

	if err := h.Patch(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	p, _ := repo.FindByID(context.Background(), "u-1")
	if p.FirstName != "Janet" || p.Address == nil || p.Address.City != "Salem" {
		t.Fatalf("update not applied: %+v", p)
	}
	if p.Role != "patient" || p.Email != "jane@example.com" {
		t.Fatalf("immutable fields changed: %+v", p)
	}
}

func TestProfileHandler_Create_OwnIDOnly(t *testing.T) {
	e := newTestEcho()
	h := NewProfileHandler(inmemory.NewProfileRepository())

	c := e.NewContext(jsonRequest(http.MethodPost, "/", `{"id":"u-3","email":"kim@example.com","role":"patient"}`), httptest.NewRecorder())
	withClaims(c, "u-9", "")

	if err := h.Create(c); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestProfileHandler_Create_Success(t *testing.T) {
	e := newTestEcho()
	repo := inmemory.NewProfileRepository()
	h := NewProfileHandler(repo)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/", `{"id":"u-3","email":"kim@example.com","first_name":"Kim","role":"provider"}`), rec)
	withClaims(c, "u-3", "")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	p, err := repo.FindByID(context.Background(), "u-3")
	if err != nil {
		t.Fatalf("profile not stored: %v", err)
	}
	if !p.IsActive || p.CreatedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", p)
	}
}

func TestProfileHandler_Create_InvalidRole(t *testing.T) {
	e := newTestEcho()
	h := NewProfileHandler(inmemory.NewProfileRepository())

	c := e.NewContext(jsonRequest(http.MethodPost, "/", `{"id":"u-3","email":"kim@example.com","role":"superuser"}`), httptest.NewRecorder())
	withClaims(c, "u-3", "")

	err := h.Create(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestProfileHandler_List_FilterByRole(t *testing.T) {
	e := newTestEcho()
	h := NewProfileHandler(seededRepo(t))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?role=provider", nil), rec)
	withClaims(c, "a-1", domain.RoleAdmin)

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var rows []domain.ProfileRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "u-2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestProfileHandler_TouchLastLogin(t *testing.T) {
	e := newTestEcho()
	repo := seededRepo(t)
	h := NewProfileHandler(repo)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/", `{"last_login":"2026-02-03T04:05:06Z"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("u-1")
	withClaims(c, "u-1", domain.RolePatient)

	if err := h.TouchLastLogin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	p, _ := repo.FindByID(context.Background(), "u-1")
	if p.LastLogin == nil || !p.LastLogin.Equal(time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)) {
		t.Fatalf("last_login not stamped: %v", p.LastLogin)
	}
}
