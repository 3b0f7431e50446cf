package api

// ColumnInfo describes a dataset column and its detected type.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // "categorical" or "continuous"
}

// DatasetMetadata is one entry of GET /datasets.
type DatasetMetadata struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Columns   []ColumnInfo `json:"columns"`
	RowCount  int          `json:"row_count"`
	CreatedAt string       `json:"created_at"` // RFC 3339
}

// DatasetDetail is the full dataset returned by GET /datasets/{id}.
type DatasetDetail struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Columns   []ColumnInfo     `json:"columns"`
	RowCount  int              `json:"row_count"`
	CreatedAt string           `json:"created_at"`
	Data      []map[string]any `json:"data"`
}

// FilterCondition restricts aggregation input to rows where column == value.
type FilterCondition struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// AggregateRequest is the body of POST /datasets/{id}/aggregate.
type AggregateRequest struct {
	GroupBy string            `json:"group_by"` // categorical column
	Metrics []string          `json:"metrics"`  // continuous columns
	Filters []FilterCondition `json:"filters,omitempty"`
}

// MetricStats holds the aggregations computed for one metric in one group.
type MetricStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// AggregateResult is the stats for one group value.
type AggregateResult struct {
	GroupValue   string                 `json:"group_value"`
	Aggregations map[string]MetricStats `json:"aggregations"`
}

// AggregateResponse is the reply of POST /datasets/{id}/aggregate.
type AggregateResponse struct {
	GroupBy string            `json:"group_by"`
	Results []AggregateResult `json:"results"`
}
