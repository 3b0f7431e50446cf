package storage

import (
	"context"

	"github.com/tenaplex/tenaplex/internal/models"
)

// UserStorage defines interface for user account persistence
type UserStorage interface {
	// CreateUser creates a new user.
	// Returns ErrEmailTaken on duplicate email and ErrTenantNotFound when
	// the referenced tenant does not exist. Both checks rely on storage
	// constraints so there is no check-then-insert race.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email.
	// Not tenant scoped: email is the global login identifier.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetScopedUser retrieves a user visible under the tenant scope carried
	// by ctx. A user belonging to another tenant yields ErrUserNotFound.
	GetScopedUser(ctx context.Context, userID string) (*models.User, error)
}
