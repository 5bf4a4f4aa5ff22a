package domain

import "errors"

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserNotFound           = errors.New("user not found")
	ErrUserExists             = errors.New("user already exists")
	ErrForbidden              = errors.New("access forbidden")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrRemoteUnavailable      = errors.New("remote service unavailable")
	ErrProfileNotFound        = errors.New("profile not found")
	ErrProfileInactive        = errors.New("profile is inactive")
	ErrInvalidProfile         = errors.New("profile record is invalid")
	ErrCacheCorrupt           = errors.New("cached session is corrupt")
	ErrNotAuthenticated       = errors.New("no authenticated user")
	ErrLoginFailed            = errors.New("login failed")
	ErrRegistrationIncomplete = errors.New("registration incomplete: identity created but profile was not")
	ErrInvalidInput           = errors.New("invalid input")
)
