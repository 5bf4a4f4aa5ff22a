package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

var profileCols = []string{"id", "email", "first_name", "last_name", "role", "is_active",
	"phone_number", "date_of_birth", "address", "insurance", "created_at", "last_login"}

func newMock(t *testing.T) (*ProfileRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewProfileRepository(db), mock
}

func TestFindByID_DecodesJSONColumns(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(profileCols).AddRow(
		"u-1", "jane@example.com", "Jane", "Roe", "patient", true, "+1-555-0100", "1991-02-03",
		[]byte(`{"street":"1 Elm","city":"Salem","state":"MA","zipCode":"01970"}`),
		nil, created, nil,
	)
	mock.ExpectQuery("FROM user_profiles WHERE id = \\$1").WithArgs("u-1").WillReturnRows(rows)

	p, err := repo.FindByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Address == nil || p.Address.ZipCode != "01970" {
		t.Fatalf("address not decoded: %+v", p.Address)
	}
	if p.Insurance != nil {
		t.Errorf("expected nil insurance, got %+v", p.Insurance)
	}
	if p.LastLogin != nil {
		t.Errorf("expected nil last_login, got %v", p.LastLogin)
	}
	if p.Role != "patient" || !p.IsActive {
		t.Errorf("unexpected row %+v", p)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FROM user_profiles").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestInsert_DuplicateIsUserExists(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("INSERT INTO user_profiles").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err := repo.Insert(context.Background(), &domain.ProfileRecord{ID: "u-1", Email: "jane@example.com", Role: "patient"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUpdate_OnlySetFields(t *testing.T) {
	repo, mock := newMock(t)
	first, phone := "Janet", "+1-555-0199"

	mock.ExpectExec("UPDATE user_profiles SET first_name = \\$1, phone_number = \\$2 WHERE id = \\$3").
		WithArgs("Janet", "+1-555-0199", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "u-1", domain.ProfileFields{FirstName: &first, PhoneNumber: &phone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdate_NoFieldsIsNoop(t *testing.T) {
	repo, mock := newMock(t)

	if err := repo.Update(context.Background(), "u-1", domain.ProfileFields{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTouchLastLogin_MissingRow(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec("UPDATE user_profiles SET last_login").
		WithArgs("u-9", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TouchLastLogin(context.Background(), "u-9", at)
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestList_FiltersByRole(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(profileCols).
		AddRow("a-1", "a@example.com", "Ann", "Admin", "admin", true, "", "", nil, nil, created, created).
		AddRow("a-2", "b@example.com", "Bob", "Admin", "admin", false, "", "", nil, nil, created.Add(time.Hour), nil)
	mock.ExpectQuery("WHERE role = \\$1 ORDER BY created_at").WithArgs("admin").WillReturnRows(rows)

	out, err := repo.List(context.Background(), domain.RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].LastLogin == nil || out[1].LastLogin != nil {
		t.Errorf("unexpected last_login values: %v, %v", out[0].LastLogin, out[1].LastLogin)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
