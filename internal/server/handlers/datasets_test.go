package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenaplex/tenaplex/internal/models"
	"github.com/tenaplex/tenaplex/internal/server/storage/sqlite"
	"github.com/tenaplex/tenaplex/internal/tenantctx"
	"github.com/tenaplex/tenaplex/pkg/api"
)

func setupDatasetHandler(t *testing.T) (*DatasetHandler, *sqlite.Storage, func()) {
	t.Helper()

	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)

	h := NewDatasetHandler(testLogger(), s)

	return h, s, func() {
		_ = s.Close()
	}
}

// seedTenantUser creates a tenant plus a user and returns a scoped context.
func seedTenantUser(t *testing.T, s *sqlite.Storage, tenantName, email string) context.Context {
	t.Helper()
	ctx := context.Background()

	tenant := &models.Tenant{ID: uuid.New().String(), Name: tenantName, CreatedAt: time.Now()}
	require.NoError(t, s.CreateTenant(ctx, tenant))

	user := &models.User{
		ID:           uuid.New().String(),
		TenantID:     tenant.ID,
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateUser(ctx, user))

	return tenantctx.WithScope(ctx, tenantctx.Scope{TenantID: tenant.ID, UserID: user.ID})
}

func uploadCSV(t *testing.T, h *DatasetHandler, ctx context.Context, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/datasets", &buf).WithContext(ctx)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	h.Upload(w, req)

	return w
}

const salesCSV = "region,year,revenue,units\n" +
	"north,2020,100.5,10\n" +
	"north,2021,80,8\n" +
	"south,2020,50,5\n" +
	"south,2021,,\n" +
	"east,2020,200,10\n"

func mustUpload(t *testing.T, h *DatasetHandler, ctx context.Context, filename, content string) api.DatasetMetadata {
	t.Helper()

	w := uploadCSV(t, h, ctx, filename, content)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var meta api.DatasetMetadata
	require.NoError(t, json.NewDecoder(w.Body).Decode(&meta))
	return meta
}

func TestDatasetHandler_Upload(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	ctx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")

	meta := mustUpload(t, h, ctx, "sales.csv", salesCSV)
	assert.Equal(t, "sales.csv", meta.Name)
	assert.Equal(t, 5, meta.RowCount)

	types := make(map[string]string, len(meta.Columns))
	for _, c := range meta.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, models.ColumnCategorical, types["region"])
	assert.Equal(t, models.ColumnCategorical, types["year"])
	assert.Equal(t, models.ColumnContinuous, types["revenue"])
	assert.Equal(t, models.ColumnContinuous, types["units"])
}

func TestDatasetHandler_Upload_Errors(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	ctx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")

	tests := []struct {
		name     string
		filename string
		content  string
		wantCode int
	}{
		{
			name:     "not a csv",
			filename: "sales.xlsx",
			content:  salesCSV,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "no data rows",
			filename: "empty.csv",
			content:  "region,revenue\n",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "duplicate headers",
			filename: "dup.csv",
			content:  "region,region\nnorth,south\n",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := uploadCSV(t, h, ctx, tt.filename, tt.content)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestDatasetHandler_Upload_MissingFile(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	ctx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/datasets", &buf).WithContext(ctx)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	h.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDatasetHandler_ListAndGet(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	ctx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")
	meta := mustUpload(t, h, ctx, "sales.csv", salesCSV)

	req := httptest.NewRequest(http.MethodGet, "/datasets", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var list []api.DatasetMetadata
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, meta.ID, list[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/datasets/"+meta.ID, nil).WithContext(ctx)
	req.SetPathValue("id", meta.ID)
	w = httptest.NewRecorder()
	h.Get(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var detail api.DatasetDetail
	require.NoError(t, json.NewDecoder(w.Body).Decode(&detail))
	assert.Equal(t, 5, detail.RowCount)
	require.Len(t, detail.Data, 5)
	assert.Equal(t, "north", detail.Data[0]["region"])
}

func TestDatasetHandler_Get_NotFound(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	ctx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")

	req := httptest.NewRequest(http.MethodGet, "/datasets/missing", nil).WithContext(ctx)
	req.SetPathValue("id", uuid.New().String())
	w := httptest.NewRecorder()
	h.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// A request that reaches a scoped handler without a scope is answered
// exactly like a missing resource.
func TestDatasetHandler_NoScopeLooksLikeNotFound(t *testing.T) {
	h, _, cleanup := setupDatasetHandler(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/datasets/some-id", nil)
	req.SetPathValue("id", "some-id")
	w := httptest.NewRecorder()
	h.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "dataset not found", resp.Message)
}

// Datasets of one tenant are invisible to another, including on delete.
func TestDatasetHandler_TenantIsolation(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	acmeCtx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")
	globexCtx := seedTenantUser(t, s, "Globex", "g@globex.com")

	meta := mustUpload(t, h, acmeCtx, "sales.csv", salesCSV)

	req := httptest.NewRequest(http.MethodGet, "/datasets", nil).WithContext(globexCtx)
	w := httptest.NewRecorder()
	h.List(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var list []api.DatasetMetadata
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Empty(t, list)

	req = httptest.NewRequest(http.MethodGet, "/datasets/"+meta.ID, nil).WithContext(globexCtx)
	req.SetPathValue("id", meta.ID)
	w = httptest.NewRecorder()
	h.Get(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/datasets/"+meta.ID, nil).WithContext(globexCtx)
	req.SetPathValue("id", meta.ID)
	w = httptest.NewRecorder()
	h.Delete(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Still there for the owner.
	req = httptest.NewRequest(http.MethodGet, "/datasets/"+meta.ID, nil).WithContext(acmeCtx)
	req.SetPathValue("id", meta.ID)
	w = httptest.NewRecorder()
	h.Get(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func doAggregate(t *testing.T, h *DatasetHandler, ctx context.Context, datasetID string, req api.AggregateRequest) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/datasets/"+datasetID+"/aggregate", bytes.NewReader(body)).WithContext(ctx)
	httpReq.SetPathValue("id", datasetID)
	w := httptest.NewRecorder()
	h.Aggregate(w, httpReq)

	return w
}

func TestDatasetHandler_Aggregate(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	ctx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")
	meta := mustUpload(t, h, ctx, "sales.csv", salesCSV)

	w := doAggregate(t, h, ctx, meta.ID, api.AggregateRequest{
		GroupBy: "region",
		Metrics: []string{"revenue"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.AggregateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "region", resp.GroupBy)
	require.Len(t, resp.Results, 3)

	byGroup := make(map[string]api.AggregateResult, len(resp.Results))
	for _, r := range resp.Results {
		byGroup[r.GroupValue] = r
	}

	north := byGroup["north"].Aggregations["revenue"]
	assert.InDelta(t, 80.0, north.Min, 1e-9)
	assert.InDelta(t, 100.5, north.Max, 1e-9)
	assert.InDelta(t, 90.25, north.Avg, 1e-9)

	// The null revenue cell in one south row is skipped, not counted as zero.
	south := byGroup["south"].Aggregations["revenue"]
	assert.InDelta(t, 50.0, south.Min, 1e-9)
	assert.InDelta(t, 50.0, south.Max, 1e-9)
	assert.InDelta(t, 50.0, south.Avg, 1e-9)
}

func TestDatasetHandler_Aggregate_Filtered(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	ctx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")
	meta := mustUpload(t, h, ctx, "sales.csv", salesCSV)

	// Year cells parse as strings in a categorical column; "2020" must match.
	w := doAggregate(t, h, ctx, meta.ID, api.AggregateRequest{
		GroupBy: "region",
		Metrics: []string{"revenue"},
		Filters: []api.FilterCondition{{Column: "year", Value: "2020"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.AggregateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Results, 3)

	for _, r := range resp.Results {
		stats := r.Aggregations["revenue"]
		// One row per region in 2020, so min == max == avg.
		assert.Equal(t, stats.Min, stats.Max)
		assert.Equal(t, stats.Min, stats.Avg)
	}
}

func TestDatasetHandler_Aggregate_Validation(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	ctx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")
	meta := mustUpload(t, h, ctx, "sales.csv", salesCSV)

	tests := []struct {
		name string
		req  api.AggregateRequest
	}{
		{
			name: "unknown group column",
			req:  api.AggregateRequest{GroupBy: "nope", Metrics: []string{"revenue"}},
		},
		{
			name: "continuous group column",
			req:  api.AggregateRequest{GroupBy: "revenue", Metrics: []string{"units"}},
		},
		{
			name: "no metrics",
			req:  api.AggregateRequest{GroupBy: "region"},
		},
		{
			name: "unknown metric",
			req:  api.AggregateRequest{GroupBy: "region", Metrics: []string{"nope"}},
		},
		{
			name: "categorical metric",
			req:  api.AggregateRequest{GroupBy: "region", Metrics: []string{"year"}},
		},
		{
			name: "unknown filter column",
			req: api.AggregateRequest{
				GroupBy: "region",
				Metrics: []string{"revenue"},
				Filters: []api.FilterCondition{{Column: "nope", Value: "x"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doAggregate(t, h, ctx, meta.ID, tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestDatasetHandler_Delete(t *testing.T) {
	h, s, cleanup := setupDatasetHandler(t)
	defer cleanup()

	ctx := seedTenantUser(t, s, "Acme Corporation", "a@acme.com")
	meta := mustUpload(t, h, ctx, "sales.csv", salesCSV)

	req := httptest.NewRequest(http.MethodDelete, "/datasets/"+meta.ID, nil).WithContext(ctx)
	req.SetPathValue("id", meta.ID)
	w := httptest.NewRecorder()
	h.Delete(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Deleting again reports not found.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/datasets/"+meta.ID, nil).WithContext(ctx)
	req.SetPathValue("id", meta.ID)
	h.Delete(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStringifyGroupValue(t *testing.T) {
	tests := []struct {
		name string
		cell any
		want string
	}{
		{"nil", nil, ""},
		{"string", "north", "north"},
		{"integer float prints as integer", 2020.0, "2020"},
		{"fractional float", 2.5, "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stringifyGroupValue(tt.cell))
		})
	}
}
