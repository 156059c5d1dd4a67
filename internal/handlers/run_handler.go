package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/services/runner"
)

const resultsPrefix = "/api/results/"

// RunHandler starts compliance runs and serves the visible results
type RunHandler struct {
	runs   RunManager
	logger arbor.ILogger
}

func NewRunHandler(runs RunManager, logger arbor.ILogger) *RunHandler {
	return &RunHandler{
		runs:   runs,
		logger: logger,
	}
}

// RunRouteHandler handles /api/run: GET returns the snapshot, POST starts a run
func (h *RunHandler) RunRouteHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, h.runs.Snapshot())
	case http.MethodPost:
		h.startRun(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// startRun returns 202 when the run was issued, 400 when validation failed and 409 while
// another run is active
func (h *RunHandler) startRun(w http.ResponseWriter, r *http.Request) {
	runID, err := h.runs.Start(r.Context(), runner.TriggerManual)
	if err != nil {
		if verr, ok := AsValidationError(err); ok {
			WriteValidationError(w, verr)
			return
		}
		if errors.Is(err, runner.ErrRunInProgress) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Failed to start compliance run")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := h.runs.Snapshot()
	WriteStarted(w, "Compliance run started", map[string]interface{}{
		"run_id":   runID,
		"progress": snap.Progress,
	})
}

// ResultsHandler handles GET /api/results
func (h *RunHandler) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	results, err := h.runs.Results()
	if err != nil {
		h.writeResultError(w, err)
		return
	}

	snap := h.runs.Snapshot()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":     snap.LastRunID,
		"statistics": snap.Statistics,
		"chart":      snap.Chart,
		"results":    results,
	})
}

// ResultRoutesHandler handles GET /api/results/{i} and GET /api/results/{i}/assertions
func (h *RunHandler) ResultRoutesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	segs := PathSegments(r.URL.Path, resultsPrefix)
	if len(segs) == 0 || len(segs) > 2 || (len(segs) == 2 && segs[1] != "assertions") {
		WriteError(w, http.StatusNotFound, "Unknown results route")
		return
	}

	i, err := strconv.Atoi(segs[0])
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid result index")
		return
	}

	if len(segs) == 1 {
		result, err := h.runs.Result(i)
		if err != nil {
			h.writeResultError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
		return
	}

	records, err := h.runs.Assertions(i)
	if err != nil {
		h.writeResultError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"index":      i,
		"assertions": records,
	})
}

func (h *RunHandler) writeResultError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runner.ErrNoResults), errors.Is(err, runner.ErrResultNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Failed to read results")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
