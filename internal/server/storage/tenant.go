package storage

import (
	"context"

	"github.com/tenaplex/tenaplex/internal/models"
)

// TenantStorage defines interface for tenant persistence
type TenantStorage interface {
	// CreateTenant creates a new tenant.
	// Returns ErrTenantNameTaken if the name is already in use; uniqueness
	// is enforced by the storage layer, not pre-checked.
	CreateTenant(ctx context.Context, tenant *models.Tenant) error

	// GetTenantByID retrieves a tenant by ID.
	// Returns ErrTenantNotFound if it doesn't exist.
	GetTenantByID(ctx context.Context, tenantID string) (*models.Tenant, error)

	// ListTenants returns all tenants ordered by name.
	// Public: backs the registration dropdown, exposes only id and name.
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
}
