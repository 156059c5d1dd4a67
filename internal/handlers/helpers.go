package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/scimdash/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteValidationError writes a 400 with the per-field messages
func WriteValidationError(w http.ResponseWriter, verr *models.ValidationError) error {
	message := verr.Message
	if message == "" {
		message = verr.Error()
	}
	fields := verr.Fields
	if fields == nil {
		fields = models.ValidationErrors{}
	}
	return WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
		"status": "error",
		"error":  message,
		"fields": fields,
	})
}

// WriteStarted writes a 202 "started" JSON response for async operations.
func WriteStarted(w http.ResponseWriter, message string, extra map[string]interface{}) error {
	body := map[string]interface{}{
		"status":  "started",
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	return WriteJSON(w, http.StatusAccepted, body)
}

// DecodeJSON decodes the request body into v, rejecting unknown fields
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// AsValidationError unwraps err into a *models.ValidationError
func AsValidationError(err error) (*models.ValidationError, bool) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// PathSegments returns the path after prefix split on "/", with empty segments removed.
// "/api/runs/abc/report" with prefix "/api/runs/" gives ["abc", "report"].
func PathSegments(path, prefix string) []string {
	rest := strings.TrimPrefix(path, prefix)
	var out []string
	for _, s := range strings.Split(rest, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PaginationResponse contains pagination metadata for API responses.
type PaginationResponse struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// GetPaginationParams extracts pagination parameters from query string.
// Returns page (0-indexed) and pageSize (default 10, max 100).
func GetPaginationParams(r *http.Request) (page, pageSize int) {
	page = 0
	pageSize = 10

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p >= 0 {
			page = p
		}
	}

	if pageSizeStr := r.URL.Query().Get("pageSize"); pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}

	return page, pageSize
}

// Paginate applies pagination to a slice of data.
func Paginate[T any](data []T, page, pageSize int) ([]T, PaginationResponse) {
	totalItems := len(data)
	totalPages := int(math.Ceil(float64(totalItems) / float64(pageSize)))

	pagination := PaginationResponse{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}

	start := page * pageSize
	if start >= totalItems {
		return []T{}, pagination
	}

	end := start + pageSize
	if end > totalItems {
		end = totalItems
	}

	return data[start:end], pagination
}
