package handlers

import (
	"html/template"
	"io/fs"
	"net/http"

	"github.com/ternarybob/arbor"
)

// DashboardState supplies the live state rendered by the dashboard
type DashboardState struct {
	Selection SelectionManager
	Auth      AuthManager
	Runs      RunManager
}

type PageHandler struct {
	logger    arbor.ILogger
	templates *template.Template
	static    http.Handler
	state     DashboardState
	options   ViewOptions
}

// NewPageHandler parses index.html and partials/*.html from pagesFS. Static assets are served
// from its static/ directory.
func NewPageHandler(logger arbor.ILogger, pagesFS fs.FS, state DashboardState, options ViewOptions) (*PageHandler, error) {
	templates, err := template.ParseFS(pagesFS, "*.html", "partials/*.html")
	if err != nil {
		return nil, err
	}

	staticFS, err := fs.Sub(pagesFS, "static")
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		logger:    logger,
		templates: templates,
		static:    http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))),
		state:     state,
		options:   options,
	}, nil
}

// View builds the dashboard view from the current state
func (h *PageHandler) View() DashboardView {
	return BuildDashboardView(
		h.state.Selection.Tree(),
		h.state.Auth.State(),
		h.state.Runs.Snapshot(),
		h.options,
	)
}

// ServeDashboard renders index.html. Unknown paths fall through to notFound.
func (h *PageHandler) ServeDashboard(notFound http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			notFound(w, r)
			return
		}
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.templates.ExecuteTemplate(w, "index.html", h.View()); err != nil {
			h.logger.Error().
				Err(err).
				Str("template", "index.html").
				Msg("Failed to render page")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// StaticFileHandler serves static files (CSS, JS, images)
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	h.static.ServeHTTP(w, r)
}
