package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes. With a base path every route, the WebSocket and
// the static assets live under it.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	notFound := s.app.APIHandler.NotFoundHandler

	// Dashboard page and assets
	mux.HandleFunc("/", s.app.PageHandler.ServeDashboard(notFound))
	mux.HandleFunc("/static/", s.app.PageHandler.StaticFileHandler)

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Selection tree
	mux.HandleFunc("/api/selection", s.app.SelectionHandler.GetSelectionHandler)
	mux.HandleFunc("/api/selection/", s.app.SelectionHandler.SelectionRoutesHandler)

	// API routes - Authentication dialog
	mux.HandleFunc("/api/auth", s.app.AuthHandler.GetAuthHandler)
	mux.HandleFunc("/api/auth/field", s.app.AuthHandler.SetFieldHandler)
	mux.HandleFunc("/api/auth/submit", s.app.AuthHandler.SubmitHandler)

	// API routes - Run controller and results
	mux.HandleFunc("/api/run", s.app.RunHandler.RunRouteHandler)
	mux.HandleFunc("/api/results", s.app.RunHandler.ResultsHandler)
	mux.HandleFunc("/api/results/", s.app.RunHandler.ResultRoutesHandler)

	// API routes - Run history and reports
	mux.HandleFunc("/api/runs", s.app.RunsHandler.ListRunsHandler)
	mux.HandleFunc("/api/runs/", s.app.RunsHandler.RunRoutesHandler)

	// API routes - Scheduler
	mux.HandleFunc("/api/scheduler", s.app.SchedulerHandler.StatusHandler)
	mux.HandleFunc("/api/scheduler/trigger", s.app.SchedulerHandler.TriggerHandler)

	// API routes - Log files
	mux.HandleFunc("/api/logs/files", s.app.LogsHandler.ListLogFilesHandler)
	mux.HandleFunc("/api/logs/content", s.app.LogsHandler.GetLogContentHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/config", s.app.ConfigHandler.GetConfig)

	// Unknown API paths get JSON instead of the dashboard
	mux.HandleFunc("/api/", notFound)

	if s.basePath == "" {
		return mux
	}

	root := http.NewServeMux()
	root.Handle(s.basePath+"/", http.StripPrefix(s.basePath, mux))
	root.HandleFunc(s.basePath, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.basePath+"/", http.StatusMovedPermanently)
	})
	root.HandleFunc("/", exact("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.basePath+"/", http.StatusFound)
	}, notFound))
	return root
}
