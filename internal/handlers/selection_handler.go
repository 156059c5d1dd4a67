package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/models"
)

const selectionPrefix = "/api/selection/"

// SelectionHandler exposes the selection tree operations
type SelectionHandler struct {
	selection SelectionManager
	logger    arbor.ILogger
}

func NewSelectionHandler(selection SelectionManager, logger arbor.ILogger) *SelectionHandler {
	return &SelectionHandler{
		selection: selection,
		logger:    logger,
	}
}

// SelectionResponse is the tree plus its derived counters
type SelectionResponse struct {
	Groups       []models.TestGroup `json:"groups"`
	AllSelected  bool               `json:"allSelected"`
	CheckedTests int                `json:"checkedTests"`
	TotalTests   int                `json:"totalTests"`
}

func newSelectionResponse(tree models.SelectionTree) SelectionResponse {
	return SelectionResponse{
		Groups:       tree.Groups(),
		AllSelected:  tree.AllSelected(),
		CheckedTests: tree.CheckedCount(),
		TotalTests:   tree.TotalCount(),
	}
}

// GetSelectionHandler handles GET /api/selection
func (h *SelectionHandler) GetSelectionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, newSelectionResponse(h.selection.Tree()))
}

// SelectionRoutesHandler handles the POST operations under /api/selection/:
//
//	/select-all
//	/reset
//	/groups/{id}/toggle
//	/groups/{id}/expand
//	/groups/{id}/children/{idx}/toggle
func (h *SelectionHandler) SelectionRoutesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	ctx := r.Context()
	segs := PathSegments(r.URL.Path, selectionPrefix)

	var (
		tree models.SelectionTree
		err  error
	)

	switch {
	case len(segs) == 1 && segs[0] == "select-all":
		tree = h.selection.SelectAll(ctx)
	case len(segs) == 1 && segs[0] == "reset":
		tree = h.selection.Reset(ctx)
	case len(segs) == 3 && segs[0] == "groups" && (segs[2] == "toggle" || segs[2] == "expand"):
		id, convErr := strconv.Atoi(segs[1])
		if convErr != nil {
			WriteError(w, http.StatusBadRequest, "Invalid group id")
			return
		}
		if segs[2] == "toggle" {
			tree, err = h.selection.ToggleGroup(ctx, id)
		} else {
			tree, err = h.selection.ToggleExpand(ctx, id)
		}
	case len(segs) == 5 && segs[0] == "groups" && segs[2] == "children" && segs[4] == "toggle":
		id, convErr := strconv.Atoi(segs[1])
		if convErr != nil {
			WriteError(w, http.StatusBadRequest, "Invalid group id")
			return
		}
		idx, convErr := strconv.Atoi(segs[3])
		if convErr != nil {
			WriteError(w, http.StatusBadRequest, "Invalid child index")
			return
		}
		tree, err = h.selection.ToggleChild(ctx, id, idx)
	default:
		WriteError(w, http.StatusNotFound, "Unknown selection operation")
		return
	}

	if err != nil {
		if errors.Is(err, models.ErrGroupNotFound) || errors.Is(err, models.ErrChildNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Selection operation failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, newSelectionResponse(tree))
}
