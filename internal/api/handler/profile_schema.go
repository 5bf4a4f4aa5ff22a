package handler

import (
	"time"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

type createProfileRequest struct {
	ID          string            `json:"id" validate:"required"`
	Email       string            `json:"email" validate:"required,email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Role        string            `json:"role" validate:"required,role"`
	IsActive    *bool             `json:"is_active"`
	PhoneNumber string            `json:"phone_number"`
	DateOfBirth string            `json:"date_of_birth" validate:"omitempty,isodate"`
	Address     *domain.Address   `json:"address"`
	Insurance   *domain.Insurance `json:"insurance"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (r *createProfileRequest) toRecord(now time.Time) *domain.ProfileRecord {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = now
	}
	return &domain.ProfileRecord{
		ID:          r.ID,
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Role:        r.Role,
		IsActive:    active,
		PhoneNumber: r.PhoneNumber,
		DateOfBirth: r.DateOfBirth,
		Address:     r.Address,
		Insurance:   r.Insurance,
		CreatedAt:   created.UTC(),
	}
}

type lastLoginRequest struct {
	LastLogin time.Time `json:"last_login"`
}
