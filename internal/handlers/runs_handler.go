package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/services/report"
)

const runsPrefix = "/api/runs/"

// RunsHandler serves the session run history and report downloads
type RunsHandler struct {
	store   interfaces.RunStorage
	reports interfaces.ReportService
	logger  arbor.ILogger
}

func NewRunsHandler(store interfaces.RunStorage, reports interfaces.ReportService, logger arbor.ILogger) *RunsHandler {
	return &RunsHandler{
		store:   store,
		reports: reports,
		logger:  logger,
	}
}

// RunSummary is a history row without the result payloads
type RunSummary struct {
	ID          string      `json:"id"`
	State       string      `json:"state"`
	Trigger     string      `json:"trigger"`
	Endpoint    string      `json:"endpoint"`
	Mode        string      `json:"mode"`
	Operations  int         `json:"operations"`
	StartedAt   string      `json:"started_at"`
	FinishedAt  string      `json:"finished_at,omitempty"`
	DurationMs  int64       `json:"duration_ms"`
	Statistics  interface{} `json:"statistics,omitempty"`
	ResultCount int         `json:"result_count"`
	Error       string      `json:"error,omitempty"`
}

// ListRunsHandler handles GET /api/runs?page=&pageSize=
func (h *RunsHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	runs, err := h.store.ListRuns(r.Context(), 0)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		s := RunSummary{
			ID:          run.ID,
			State:       string(run.State),
			Trigger:     run.Trigger,
			Endpoint:    run.Endpoint,
			Mode:        string(run.Mode),
			Operations:  len(run.Operations),
			StartedAt:   run.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			DurationMs:  run.Duration().Milliseconds(),
			ResultCount: len(run.Results),
			Error:       run.Error,
		}
		if !run.FinishedAt.IsZero() {
			s.FinishedAt = run.FinishedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		if run.Statistics != nil {
			s.Statistics = run.Statistics
		}
		summaries = append(summaries, s)
	}

	page, pageSize := GetPaginationParams(r)
	data, pagination := Paginate(summaries, page, pageSize)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":       data,
		"pagination": pagination,
	})
}

// RunRoutesHandler handles GET /api/runs/{id} and GET /api/runs/{id}/report?format=
func (h *RunsHandler) RunRoutesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	segs := PathSegments(r.URL.Path, runsPrefix)
	if len(segs) == 0 || len(segs) > 2 || (len(segs) == 2 && segs[1] != "report") {
		WriteError(w, http.StatusNotFound, "Unknown runs route")
		return
	}

	run, err := h.store.GetRun(r.Context(), segs[0])
	if err != nil {
		if errors.Is(err, interfaces.ErrRunNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("run_id", segs[0]).Msg("Failed to load run")
		WriteError(w, http.StatusInternalServerError, "Failed to load run")
		return
	}

	if len(segs) == 1 {
		WriteJSON(w, http.StatusOK, run)
		return
	}

	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, contentType, err := h.reports.Render(run, format)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", run.ID).Str("format", string(format)).Msg("Failed to render report")
		WriteError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(run, format)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to write report")
	}
}
