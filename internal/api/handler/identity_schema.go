package handler

import (
	"time"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type tokenRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type identityResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
	ExpiresAt   int64            `json:"expires_at"`
	User        identityResponse `json:"user"`
}

// signUpResponse carries the new identity at the top level and, when the
// account could be signed in straight away, the session alongside it.
type signUpResponse struct {
	identityResponse
	AccessToken string            `json:"access_token,omitempty"`
	TokenType   string            `json:"token_type,omitempty"`
	ExpiresIn   int64             `json:"expires_in,omitempty"`
	ExpiresAt   int64             `json:"expires_at,omitempty"`
	User        *identityResponse `json:"user,omitempty"`
}

func toIdentityResponse(id *domain.Identity) identityResponse {
	return identityResponse{ID: id.ID, Email: id.Email, CreatedAt: id.CreatedAt}
}
