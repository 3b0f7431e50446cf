package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tenaplex/tenaplex/internal/models"
	"github.com/tenaplex/tenaplex/internal/server/storage"
	"github.com/tenaplex/tenaplex/internal/tenantctx"
	"github.com/tenaplex/tenaplex/pkg/api"
)

// maxUploadBytes caps CSV uploads at 10MB
const maxUploadBytes = 10 << 20

// DatasetHandler serves the tenant-scoped dataset endpoints. It never reads
// the tenant from the request body or URL: the scope installed by the auth
// middleware is the only source of tenant identity, and the storage layer
// re-checks it on every query.
type DatasetHandler struct {
	logger   *slog.Logger
	datasets storage.DatasetStorage
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(logger *slog.Logger, datasets storage.DatasetStorage) *DatasetHandler {
	return &DatasetHandler{
		logger:   logger,
		datasets: datasets,
	}
}

// List handles GET /datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	datasets, err := h.datasets.ListDatasets(ctx)
	if err != nil {
		h.fail(w, r, "failed to list datasets", err)
		return
	}

	resp := make([]api.DatasetMetadata, 0, len(datasets))
	for _, d := range datasets {
		resp = append(resp, toMetadata(d))
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Get handles GET /datasets/{id}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	datasetID := r.PathValue("id")

	dataset, err := h.datasets.GetDataset(ctx, datasetID)
	if err != nil {
		h.fail(w, r, "failed to get dataset", err)
		return
	}

	rows, err := h.datasets.GetDatasetRows(ctx, datasetID)
	if err != nil {
		h.fail(w, r, "failed to get dataset rows", err)
		return
	}

	meta := toMetadata(dataset)
	data := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.Values)
	}

	sendJSON(h.logger, w, api.DatasetDetail{
		ID:        meta.ID,
		Name:      meta.Name,
		Columns:   meta.Columns,
		RowCount:  meta.RowCount,
		CreatedAt: meta.CreatedAt,
		Data:      data,
	}, http.StatusOK)
}

// Upload handles POST /datasets
// Accepts a multipart form with a "file" field holding a CSV.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		h.fail(w, r, "upload without scope", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		sendError(h.logger, w, "file field is required", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		sendError(h.logger, w, "file must be a CSV file", http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			sendError(h.logger, w, "file exceeds the 10MB upload limit", http.StatusRequestEntityTooLarge)
			return
		}
		h.fail(w, r, "failed to read upload", err)
		return
	}

	parsedRows, columns, err := parseCSV(string(content))
	if err != nil {
		sendError(h.logger, w, fmt.Sprintf("CSV validation failed: %v", err), http.StatusBadRequest)
		return
	}

	dataset := &models.Dataset{
		ID:        uuid.New().String(),
		TenantID:  scope.TenantID,
		UserID:    scope.UserID,
		Name:      header.Filename,
		Columns:   columns,
		RowCount:  len(parsedRows),
		CreatedAt: time.Now(),
	}

	rows := make([]*models.DatasetRow, 0, len(parsedRows))
	for _, values := range parsedRows {
		rows = append(rows, &models.DatasetRow{
			ID:        uuid.New().String(),
			DatasetID: dataset.ID,
			TenantID:  scope.TenantID,
			Values:    values,
		})
	}

	if err := h.datasets.SaveDataset(ctx, dataset, rows); err != nil {
		h.fail(w, r, "failed to save dataset", err)
		return
	}

	h.logger.InfoContext(ctx, "dataset uploaded",
		slog.String("dataset_id", dataset.ID),
		slog.String("tenant_id", dataset.TenantID),
		slog.Int("rows", dataset.RowCount))

	sendJSON(h.logger, w, toMetadata(dataset), http.StatusCreated)
}

// Aggregate handles POST /datasets/{id}/aggregate
// Groups rows by a categorical column and computes min/max/avg of the
// requested continuous metrics.
func (h *DatasetHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	datasetID := r.PathValue("id")

	var req api.AggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	dataset, err := h.datasets.GetDataset(ctx, datasetID)
	if err != nil {
		h.fail(w, r, "failed to get dataset", err)
		return
	}

	columnTypes := make(map[string]string, len(dataset.Columns))
	for _, c := range dataset.Columns {
		columnTypes[c.Name] = c.Type
	}

	if t, ok := columnTypes[req.GroupBy]; !ok {
		sendError(h.logger, w, fmt.Sprintf("column %q not found in dataset", req.GroupBy), http.StatusBadRequest)
		return
	} else if t != models.ColumnCategorical {
		sendError(h.logger, w, fmt.Sprintf("column %q is not categorical and cannot be grouped by", req.GroupBy), http.StatusBadRequest)
		return
	}

	if len(req.Metrics) == 0 {
		sendError(h.logger, w, "at least one metric is required", http.StatusBadRequest)
		return
	}
	for _, metric := range req.Metrics {
		if t, ok := columnTypes[metric]; !ok {
			sendError(h.logger, w, fmt.Sprintf("column %q not found in dataset", metric), http.StatusBadRequest)
			return
		} else if t != models.ColumnContinuous {
			sendError(h.logger, w, fmt.Sprintf("column %q is not continuous and cannot be aggregated", metric), http.StatusBadRequest)
			return
		}
	}
	for _, f := range req.Filters {
		if _, ok := columnTypes[f.Column]; !ok {
			sendError(h.logger, w, fmt.Sprintf("filter column %q not found in dataset", f.Column), http.StatusBadRequest)
			return
		}
	}

	rows, err := h.datasets.GetDatasetRows(ctx, datasetID)
	if err != nil {
		h.fail(w, r, "failed to get dataset rows", err)
		return
	}

	sendJSON(h.logger, w, aggregateRows(req, rows), http.StatusOK)
}

// Delete handles DELETE /datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	datasetID := r.PathValue("id")

	if err := h.datasets.DeleteDataset(ctx, datasetID); err != nil {
		h.fail(w, r, "failed to delete dataset", err)
		return
	}

	h.logger.InfoContext(ctx, "dataset deleted", slog.String("dataset_id", datasetID))
	w.WriteHeader(http.StatusNoContent)
}

// aggregateRows computes per-group min/max/avg for the requested metrics.
type accumulator struct {
	min   float64
	max   float64
	sum   float64
	count int
}

func aggregateRows(req api.AggregateRequest, rows []*models.DatasetRow) api.AggregateResponse {
	groups := make(map[string]map[string]*accumulator)
	var order []string

rowLoop:
	for _, row := range rows {
		for _, f := range req.Filters {
			if !matchesFilter(row.Values[f.Column], f.Value) {
				continue rowLoop
			}
		}

		groupValue := stringifyGroupValue(row.Values[req.GroupBy])
		if groupValue == "" {
			continue
		}

		accs, ok := groups[groupValue]
		if !ok {
			accs = make(map[string]*accumulator, len(req.Metrics))
			groups[groupValue] = accs
			order = append(order, groupValue)
		}

		for _, metric := range req.Metrics {
			value, ok := row.Values[metric].(float64)
			if !ok {
				continue // null or unparsable cell
			}
			acc, ok := accs[metric]
			if !ok {
				acc = &accumulator{min: value, max: value}
				accs[metric] = acc
			}
			if value < acc.min {
				acc.min = value
			}
			if value > acc.max {
				acc.max = value
			}
			acc.sum += value
			acc.count++
		}
	}

	resp := api.AggregateResponse{
		GroupBy: req.GroupBy,
		Results: make([]api.AggregateResult, 0, len(order)),
	}
	for _, groupValue := range order {
		result := api.AggregateResult{
			GroupValue:   groupValue,
			Aggregations: make(map[string]api.MetricStats, len(req.Metrics)),
		}
		for metric, acc := range groups[groupValue] {
			if acc.count == 0 {
				continue
			}
			result.Aggregations[metric] = api.MetricStats{
				Min: acc.min,
				Max: acc.max,
				Avg: acc.sum / float64(acc.count),
			}
		}
		resp.Results = append(resp.Results, result)
	}

	return resp
}

func matchesFilter(cell any, want string) bool {
	return stringifyGroupValue(cell) == want
}

// stringifyGroupValue renders a cell for grouping and filter comparison.
// Integer-valued floats print without a decimal point so years look like
// "2007", not "2007.000000".
func stringifyGroupValue(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toMetadata(d *models.Dataset) api.DatasetMetadata {
	columns := make([]api.ColumnInfo, 0, len(d.Columns))
	for _, c := range d.Columns {
		columns = append(columns, api.ColumnInfo{Name: c.Name, Type: c.Type})
	}
	return api.DatasetMetadata{
		ID:        d.ID,
		Name:      d.Name,
		Columns:   columns,
		RowCount:  d.RowCount,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
}

// fail maps storage errors to safe responses. Not-found and scope errors
// both become 404: a resource in another tenant must be indistinguishable
// from one that does not exist.
func (h *DatasetHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, storage.ErrDatasetNotFound):
		sendError(h.logger, w, "dataset not found", http.StatusNotFound)
	case errors.Is(err, tenantctx.ErrNoScope):
		// A scoped handler running without a scope is a wiring bug, never
		// a user error; log loudly but reveal nothing.
		h.logger.ErrorContext(ctx, "tenant scope missing in scoped handler",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		sendError(h.logger, w, "dataset not found", http.StatusNotFound)
	default:
		h.logger.ErrorContext(ctx, msg, slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
	}
}
