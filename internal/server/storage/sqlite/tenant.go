package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tenaplex/tenaplex/internal/models"
	"github.com/tenaplex/tenaplex/internal/server/storage"
)

// CreateTenant creates a new tenant
func (s *Storage) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, created_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "tenants.name") {
			return storage.ErrTenantNameTaken
		}
		return fmt.Errorf("failed to insert tenant: %w", err)
	}

	return nil
}

// GetTenantByID retrieves a tenant by ID
func (s *Storage) GetTenantByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	query := `
		SELECT id, name, created_at
		FROM tenants
		WHERE id = ?
	`

	tenant := &models.Tenant{}

	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return tenant, nil
}

// ListTenants returns all tenants ordered by name
func (s *Storage) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	query := `
		SELECT id, name, created_at
		FROM tenants
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tenants []*models.Tenant

	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(
			&tenant.ID,
			&tenant.Name,
			&tenant.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tenants, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the given column. modernc.org/sqlite surfaces constraint violations as
// plain errors carrying the constraint text.
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
