package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/services/logviewer"
)

// SystemLogsHandler serves the service log files so the dashboard can backfill its log
// panel after a reload
type SystemLogsHandler struct {
	service *logviewer.Service
	logger  arbor.ILogger
}

func NewSystemLogsHandler(service *logviewer.Service, logger arbor.ILogger) *SystemLogsHandler {
	return &SystemLogsHandler{
		service: service,
		logger:  logger,
	}
}

// ListLogFilesHandler handles GET /api/logs/files
func (h *SystemLogsHandler) ListLogFilesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	files, err := h.service.ListLogFiles()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list log files")
		WriteError(w, http.StatusInternalServerError, "Failed to list log files")
		return
	}

	WriteJSON(w, http.StatusOK, files)
}

// GetLogContentHandler handles GET /api/logs/content?filename=&limit=&levels=info,warn
func (h *SystemLogsHandler) GetLogContentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		WriteError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	limit := 200
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = l
	}

	var levels []string
	if levelsStr := r.URL.Query().Get("levels"); levelsStr != "" {
		levels = strings.Split(levelsStr, ",")
	}

	entries, err := h.service.GetLogContent(filename, limit, levels)
	if err != nil {
		h.logger.Warn().Err(err).Str("filename", filename).Msg("Failed to read log content")
		WriteError(w, http.StatusNotFound, "Log file not available")
		return
	}

	WriteJSON(w, http.StatusOK, entries)
}
