package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tenaplex/tenaplex/internal/models"
	"github.com/tenaplex/tenaplex/internal/server/storage"
	"github.com/tenaplex/tenaplex/internal/tenantctx"
)

// SaveDataset stores dataset metadata and its rows in one transaction.
// Requires a tenant scope in ctx; the dataset must belong to that tenant.
func (s *Storage) SaveDataset(ctx context.Context, dataset *models.Dataset, rows []*models.DatasetRow) error {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return err
	}
	if dataset.TenantID != scope.TenantID {
		// Scope mismatch on a write is always a bug upstream.
		return fmt.Errorf("dataset tenant %q does not match scope tenant %q: %w",
			dataset.TenantID, scope.TenantID, tenantctx.ErrNoScope)
	}

	columnsJSON, err := json.Marshal(dataset.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (id, tenant_id, user_id, name, columns, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		dataset.ID,
		dataset.TenantID,
		dataset.UserID,
		dataset.Name,
		string(columnsJSON),
		dataset.RowCount,
		dataset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dataset_rows (id, dataset_id, tenant_id, row_data)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, row := range rows {
		rowJSON, err := json.Marshal(row.Values)
		if err != nil {
			return fmt.Errorf("failed to marshal row data: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, row.ID, dataset.ID, dataset.TenantID, string(rowJSON)); err != nil {
			return fmt.Errorf("failed to insert dataset row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	return nil
}

// ListDatasets returns the scope tenant's datasets, newest first
func (s *Storage) ListDatasets(ctx context.Context) ([]*models.Dataset, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, user_id, name, columns, row_count, created_at
		FROM datasets
		WHERE tenant_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var datasets []*models.Dataset

	for rows.Next() {
		dataset, err := scanDataset(rows.Scan)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return datasets, nil
}

// GetDataset retrieves one dataset within the scope's tenant
func (s *Storage) GetDataset(ctx context.Context, datasetID string) (*models.Dataset, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, user_id, name, columns, row_count, created_at
		FROM datasets
		WHERE id = ? AND tenant_id = ?
	`

	row := s.db.QueryRowContext(ctx, query, datasetID, scope.TenantID)

	dataset, err := scanDataset(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDatasetNotFound
		}
		return nil, err
	}

	return dataset, nil
}

// GetDatasetRows returns all rows of a dataset within the scope's tenant
func (s *Storage) GetDatasetRows(ctx context.Context, datasetID string) ([]*models.DatasetRow, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, dataset_id, tenant_id, row_data
		FROM dataset_rows
		WHERE dataset_id = ? AND tenant_id = ?
	`

	rows, err := s.db.QueryContext(ctx, query, datasetID, scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset rows: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.DatasetRow

	for rows.Next() {
		row := &models.DatasetRow{}
		var rowJSON string

		if err := rows.Scan(&row.ID, &row.DatasetID, &row.TenantID, &rowJSON); err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}

		if err := json.Unmarshal([]byte(rowJSON), &row.Values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row data: %w", err)
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// DeleteDataset removes a dataset and its rows within the scope's tenant
func (s *Storage) DeleteDataset(ctx context.Context, datasetID string) error {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM datasets WHERE id = ? AND tenant_id = ?`,
		datasetID, scope.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrDatasetNotFound
	}

	return nil
}

func scanDataset(scan func(...any) error) (*models.Dataset, error) {
	dataset := &models.Dataset{}
	var columnsJSON string

	err := scan(
		&dataset.ID,
		&dataset.TenantID,
		&dataset.UserID,
		&dataset.Name,
		&columnsJSON,
		&dataset.RowCount,
		&dataset.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	if err := json.Unmarshal([]byte(columnsJSON), &dataset.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}

	return dataset, nil
}
