package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/common"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/report"
	"github.com/ternarybob/scimdash/internal/storage/badger"
)

func newRunsHandler(t *testing.T) *RunsHandler {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := badger.NewBadgerDB(logger, &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := badger.NewRunStorage(db, logger)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run_a", "run_b", "run_c"} {
		run := &models.RunRecord{
			ID:         id,
			State:      models.RunStateSucceeded,
			Trigger:    "manual",
			Endpoint:   "https://scim.local",
			Mode:       models.AuthModeBasic,
			Operations: []string{"GetUsers"},
			StartedAt:  started.Add(time.Duration(i) * time.Minute),
			FinishedAt: started.Add(time.Duration(i)*time.Minute + 1500*time.Millisecond),
			Statistics: &models.RunStatistics{Total: 1, Success: 1, Time: 120},
			Results: []models.TestResult{
				{Name: "GET /Users", Status: models.TestStatusSuccess, ElapsedTime: 120},
			},
		}
		require.NoError(t, store.SaveRun(context.Background(), run))
	}

	return NewRunsHandler(store, report.NewService("", logger), logger)
}

func TestRunsHandler_List(t *testing.T) {
	h := newRunsHandler(t)

	rec := do(t, h.ListRunsHandler, http.MethodGet, "/api/runs?pageSize=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	runs := body["runs"].([]interface{})
	require.Len(t, runs, 2)

	first := runs[0].(map[string]interface{})
	assert.Equal(t, "run_c", first["id"])
	assert.Equal(t, float64(1500), first["duration_ms"])
	assert.Equal(t, float64(1), first["result_count"])
	assert.NotContains(t, first, "results")

	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["total_items"])
	assert.Equal(t, float64(2), pagination["total_pages"])
}

func TestRunsHandler_GetRun(t *testing.T) {
	h := newRunsHandler(t)

	rec := do(t, h.RunRoutesHandler, http.MethodGet, "/api/runs/run_b", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run_b", body["id"])
	assert.Len(t, body["results"], 1)

	rec = do(t, h.RunRoutesHandler, http.MethodGet, "/api/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h.RunRoutesHandler, http.MethodGet, "/api/runs/run_b/other", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunsHandler_Report(t *testing.T) {
	h := newRunsHandler(t)

	tests := []struct {
		format      string
		contentType string
		fileName    string
	}{
		{"", report.ContentTypePDF, "scim-compliance-run_a.pdf"},
		{"xlsx", report.ContentTypeXLSX, "scim-compliance-run_a.xlsx"},
		{"yaml", report.ContentTypeYAML, "scim-compliance-run_a.yaml"},
		{"json", report.ContentTypeJSON, "scim-compliance-run_a.json"},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			rec := do(t, h.RunRoutesHandler, http.MethodGet, "/api/runs/run_a/report?format="+tt.format, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.fileName)
			assert.NotEmpty(t, rec.Body.Bytes())
		})
	}

	rec := do(t, h.RunRoutesHandler, http.MethodGet, "/api/runs/run_a/report?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h.RunRoutesHandler, http.MethodGet, "/api/runs/missing/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
