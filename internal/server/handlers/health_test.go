package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenaplex/tenaplex/internal/server/storage/sqlite"
)

func TestHealthHandler(t *testing.T) {
	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	h := NewHealthHandler(testLogger(), s.DB())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Components["database"])
}

func TestHealthHandler_NoDatabase(t *testing.T) {
	h := NewHealthHandler(testLogger(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "skipped", resp.Components["database"])
}

func TestHealthHandler_DatabaseDown(t *testing.T) {
	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	db := s.DB()
	require.NoError(t, s.Close())

	h := NewHealthHandler(testLogger(), db)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "unhealthy", resp.Status)
}
