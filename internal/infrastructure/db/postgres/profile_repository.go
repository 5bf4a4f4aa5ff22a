// Package postgres stores profile rows in PostgreSQL through database/sql and
// the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

const uniqueViolation = "23505"

const profileColumns = `id, email, first_name, last_name, role, is_active, phone_number,
	date_of_birth, address, insurance, created_at, last_login`

type ProfileRepository struct {
	db *sql.DB
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.ProfileRecord, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	return p, err
}

func (r *ProfileRepository) Insert(ctx context.Context, p *domain.ProfileRecord) error {
	address, err := jsonColumn(p.Address)
	if err != nil {
		return err
	}
	insurance, err := jsonColumn(p.Insurance)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.Email, p.FirstName, p.LastName, p.Role, p.IsActive, p.PhoneNumber,
		p.DateOfBirth, address, insurance, p.CreatedAt, p.LastLogin)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrUserExists
	}
	return err
}

// Update writes only the set fields of f.
func (r *ProfileRepository) Update(ctx context.Context, id string, f domain.ProfileFields) error {
	sets, args, err := updateClauses(f)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE user_profiles SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *ProfileRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_profiles SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *ProfileRepository) List(ctx context.Context, role domain.Role) ([]*domain.ProfileRecord, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles`
	var args []any
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, string(role))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ProfileRecord
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.ProfileRecord, error) {
	var (
		p                  domain.ProfileRecord
		address, insurance []byte
		lastLogin          sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Role, &p.IsActive,
		&p.PhoneNumber, &p.DateOfBirth, &address, &insurance, &p.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}

	if len(address) > 0 {
		p.Address = &domain.Address{}
		if err := json.Unmarshal(address, p.Address); err != nil {
			return nil, fmt.Errorf("%w: address: %v", domain.ErrInvalidProfile, err)
		}
	}
	if len(insurance) > 0 {
		p.Insurance = &domain.Insurance{}
		if err := json.Unmarshal(insurance, p.Insurance); err != nil {
			return nil, fmt.Errorf("%w: insurance: %v", domain.ErrInvalidProfile, err)
		}
	}
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		p.LastLogin = &t
	}
	return &p, nil
}

func updateClauses(f domain.ProfileFields) ([]string, []any, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if f.FirstName != nil {
		add("first_name", *f.FirstName)
	}
	if f.LastName != nil {
		add("last_name", *f.LastName)
	}
	if f.PhoneNumber != nil {
		add("phone_number", *f.PhoneNumber)
	}
	if f.DateOfBirth != nil {
		add("date_of_birth", *f.DateOfBirth)
	}
	if f.Address != nil {
		raw, err := json.Marshal(f.Address)
		if err != nil {
			return nil, nil, err
		}
		add("address", raw)
	}
	if f.Insurance != nil {
		raw, err := json.Marshal(f.Insurance)
		if err != nil {
			return nil, nil, err
		}
		add("insurance", raw)
	}
	return sets, args, nil
}

// jsonColumn encodes v for a nullable JSONB column.
func jsonColumn[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}
