package storage

import (
	"context"

	"github.com/tenaplex/tenaplex/internal/models"
)

// DatasetStorage defines interface for tenant-scoped dataset persistence.
//
// Every method requires a tenant scope installed in ctx via tenantctx and
// fails with tenantctx.ErrNoScope otherwise. The scope's tenant_id is added
// to every query; this is the storage-level enforcement point for tenant
// isolation and is not optional per call site.
type DatasetStorage interface {
	// SaveDataset stores dataset metadata and its rows in one transaction.
	// The dataset's TenantID and UserID must match the ctx scope.
	SaveDataset(ctx context.Context, dataset *models.Dataset, rows []*models.DatasetRow) error

	// ListDatasets returns the scope tenant's datasets, newest first.
	ListDatasets(ctx context.Context) ([]*models.Dataset, error)

	// GetDataset retrieves one dataset within the scope's tenant.
	// Returns ErrDatasetNotFound if it doesn't exist there, including when
	// the ID belongs to another tenant.
	GetDataset(ctx context.Context, datasetID string) (*models.Dataset, error)

	// GetDatasetRows returns all rows of a dataset within the scope's tenant.
	GetDatasetRows(ctx context.Context, datasetID string) ([]*models.DatasetRow, error)

	// DeleteDataset removes a dataset and its rows within the scope's tenant.
	// Returns ErrDatasetNotFound if it doesn't exist there.
	DeleteDataset(ctx context.Context, datasetID string) error
}
