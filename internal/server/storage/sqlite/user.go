package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tenaplex/tenaplex/internal/models"
	"github.com/tenaplex/tenaplex/internal/server/storage"
	"github.com/tenaplex/tenaplex/internal/tenantctx"
)

// CreateUser creates a new user.
// Email uniqueness and tenant existence are enforced by constraints, so
// there is no check-then-insert window under concurrent registration.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, tenant_id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.TenantID,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return storage.ErrEmailTaken
		}
		if isForeignKeyViolation(err) {
			return storage.ErrTenantNotFound
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, tenant_id, email, password_hash, created_at
		FROM users
		WHERE email = ?
	`

	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetUserByID retrieves a user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, tenant_id, email, password_hash, created_at
		FROM users
		WHERE id = ?
	`

	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// GetScopedUser retrieves a user visible under the tenant scope in ctx.
// A user owned by another tenant is reported as not found.
func (s *Storage) GetScopedUser(ctx context.Context, userID string) (*models.User, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, email, password_hash, created_at
		FROM users
		WHERE id = ? AND tenant_id = ?
	`

	return s.scanUser(s.db.QueryRowContext(ctx, query, userID, scope.TenantID))
}

func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}

	err := row.Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
