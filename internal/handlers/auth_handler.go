package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
)

// AuthHandler exposes the auth dialog: read state, edit one field, submit
type AuthHandler struct {
	auth   AuthManager
	logger arbor.ILogger
}

func NewAuthHandler(auth AuthManager, logger arbor.ILogger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

// SetFieldRequest is the body of PUT /api/auth/field
type SetFieldRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GetAuthHandler handles GET /api/auth. Secrets are redacted.
func (h *AuthHandler) GetAuthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.auth.State())
}

// SetFieldHandler handles PUT /api/auth/field
func (h *AuthHandler) SetFieldHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	var req SetFieldRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.auth.SetField(req.Name, req.Value); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, h.auth.State())
}

// SubmitHandler handles POST /api/auth/submit. A rejected submit returns 400 with every
// failing field.
func (h *AuthHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.auth.Submit(r.Context()); err != nil {
		if verr, ok := AsValidationError(err); ok {
			WriteValidationError(w, verr)
			return
		}
		h.logger.Error().Err(err).Msg("Auth submit failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, h.auth.State())
}
