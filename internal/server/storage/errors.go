package storage

import "errors"

// Common storage errors
var (
	// ErrTenantNotFound indicates that tenant was not found in storage
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantNameTaken indicates that a tenant with this name already exists
	ErrTenantNameTaken = errors.New("tenant name already taken")

	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken indicates that a user with this email already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrTokenNotFound indicates that refresh token was not found
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrTokenRotated indicates the refresh token was already rotated.
	// Seeing it again means theft or a lost race; callers treat it as
	// invalid and may revoke the chain defensively.
	ErrTokenRotated = errors.New("refresh token already rotated")

	// ErrTokenExpired indicates the refresh token is past its expiry
	ErrTokenExpired = errors.New("refresh token expired")

	// ErrDatasetNotFound indicates that dataset was not found in the
	// caller's tenant. A dataset existing under another tenant yields the
	// same error, deliberately indistinguishable.
	ErrDatasetNotFound = errors.New("dataset not found")
)
