package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/runner"
)

// fakeRuns is a RunManager with canned answers
type fakeRuns struct {
	startID  string
	startErr error
	started  []string
	snapshot models.RunSnapshot
	results  []models.TestResult
}

func (f *fakeRuns) Start(ctx context.Context, trigger string) (string, error) {
	f.started = append(f.started, trigger)
	return f.startID, f.startErr
}

func (f *fakeRuns) Snapshot() models.RunSnapshot { return f.snapshot }

func (f *fakeRuns) Results() ([]models.TestResult, error) {
	if f.results == nil {
		return nil, runner.ErrNoResults
	}
	return f.results, nil
}

func (f *fakeRuns) Result(i int) (models.TestResult, error) {
	if f.results == nil {
		return models.TestResult{}, runner.ErrNoResults
	}
	if i < 0 || i >= len(f.results) {
		return models.TestResult{}, runner.ErrResultNotFound
	}
	return f.results[i], nil
}

func (f *fakeRuns) Assertions(i int) ([]models.AssertionRecord, error) {
	r, err := f.Result(i)
	if err != nil {
		return nil, err
	}
	if r.Wire.Tests == "" {
		return []models.AssertionRecord{}, nil
	}
	return []models.AssertionRecord{{Name: "Status code", Status: "Success", Actual: "200", Expected: "200"}}, nil
}

func do(t *testing.T, h http.HandlerFunc, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
