package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/payload"
	"github.com/ternarybob/scimdash/internal/services/runner"
)

func TestRunHandler_Start(t *testing.T) {
	progress := 3
	runs := &fakeRuns{
		startID:  "run_42",
		snapshot: models.RunSnapshot{State: models.RunStateRunning, RunID: "run_42", Progress: &progress},
	}
	h := NewRunHandler(runs, arbor.NewLogger())

	rec := do(t, h.RunRouteHandler, http.MethodPost, "/api/run", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, "run_42", body["run_id"])
	assert.Equal(t, float64(3), body["progress"])
	assert.Equal(t, []string{runner.TriggerManual}, runs.started)

	rec = do(t, h.RunRouteHandler, http.MethodGet, "/api/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decode(t, rec)["state"])

	rec = do(t, h.RunRouteHandler, http.MethodDelete, "/api/run", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRunHandler_StartRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{
			name: "nothing checked",
			err: &models.ValidationError{
				Fields:  models.ValidationErrors{models.FieldGeneral: payload.MsgCheckOneTest},
				Message: payload.MsgCheckOneTest,
			},
			code: http.StatusBadRequest,
		},
		{name: "already running", err: runner.ErrRunInProgress, code: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRunHandler(&fakeRuns{startErr: tt.err}, arbor.NewLogger())
			rec := do(t, h.RunRouteHandler, http.MethodPost, "/api/run", nil)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.err.Error(), decode(t, rec)["error"])
		})
	}
}

func TestRunHandler_Results(t *testing.T) {
	runs := &fakeRuns{}
	h := NewRunHandler(runs, arbor.NewLogger())

	rec := do(t, h.ResultsHandler, http.MethodGet, "/api/results", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h.ResultRoutesHandler, http.MethodGet, "/api/results/0", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stats := models.RunStatistics{Total: 2, Success: 1, Failed: 1, Time: 40}
	chart := models.NewSummaryChart(stats)
	runs.results = []models.TestResult{
		{Name: "GET /Users", Status: models.TestStatusSuccess, Wire: models.WireLog{Tests: "Status code\nActual : 200\nExpected : 200\nStatus : Success"}},
		{Name: "DELETE /Users", Status: models.TestStatusFailed},
	}
	runs.snapshot = models.RunSnapshot{State: models.RunStateSucceeded, LastRunID: "run_7", Statistics: &stats, Chart: &chart}

	rec = do(t, h.ResultsHandler, http.MethodGet, "/api/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run_7", body["run_id"])
	assert.Len(t, body["results"], 2)
	assert.Equal(t, float64(2), body["statistics"].(map[string]interface{})["total"])

	rec = do(t, h.ResultRoutesHandler, http.MethodGet, "/api/results/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DELETE /Users", decode(t, rec)["name"])

	rec = do(t, h.ResultRoutesHandler, http.MethodGet, "/api/results/0/assertions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(0), body["index"])
	assert.Len(t, body["assertions"], 1)

	rec = do(t, h.ResultRoutesHandler, http.MethodGet, "/api/results/5", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h.ResultRoutesHandler, http.MethodGet, "/api/results/x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h.ResultRoutesHandler, http.MethodGet, "/api/results/0/raw", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
