package models

import "time"

// Column types detected during CSV ingestion.
const (
	ColumnCategorical = "categorical"
	ColumnContinuous  = "continuous"
)

// Column describes one column of an uploaded dataset.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"` // categorical | continuous
}

// Dataset is the metadata record for an uploaded CSV. Rows are stored
// separately in DatasetRow with a denormalized tenant_id so the storage
// layer can scope row queries without joining.
type Dataset struct {
	ID        string    `json:"id"`        // UUID
	TenantID  string    `json:"tenant_id"` // owning tenant
	UserID    string    `json:"user_id"`   // uploader
	Name      string    `json:"name"`
	Columns   []Column  `json:"columns"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// DatasetRow is a single parsed CSV row. Values hold strings for
// categorical columns and float64 (or nil) for continuous columns.
type DatasetRow struct {
	ID        string         `json:"id"`
	DatasetID string         `json:"dataset_id"`
	TenantID  string         `json:"tenant_id"` // denormalized for scoping
	Values    map[string]any `json:"values"`
}
