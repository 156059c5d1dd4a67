package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/scimdash/internal/services/runner"
)

// SchedulerHandler handles scheduler-related endpoints
type SchedulerHandler struct {
	scheduler SchedulerStatusProvider
}

// NewSchedulerHandler creates a new scheduler handler. scheduler may be nil when scheduled
// runs are disabled.
func NewSchedulerHandler(scheduler SchedulerStatusProvider) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

// StatusHandler handles GET /api/scheduler
func (h *SchedulerHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if h.scheduler == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	WriteJSON(w, http.StatusOK, h.scheduler.Status())
}

// TriggerHandler handles POST /api/scheduler/trigger. It runs the scheduled job now and
// waits for it to resolve.
func (h *SchedulerHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if h.scheduler == nil {
		WriteError(w, http.StatusNotFound, "Scheduled runs are disabled")
		return
	}

	// A failed run is still a completed trigger; its error is part of the status
	if err := h.scheduler.TriggerNow(); err != nil && !errors.Is(err, runner.ErrRunFailed) {
		if verr, ok := AsValidationError(err); ok {
			WriteValidationError(w, verr)
			return
		}
		if errors.Is(err, runner.ErrRunInProgress) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, h.scheduler.Status())
}
