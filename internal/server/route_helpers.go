package server

import (
	"net/http"
)

// RouteHandler is a function type for HTTP handlers
type RouteHandler func(http.ResponseWriter, *http.Request)

// exact serves h only when the path matches pattern exactly. ServeMux treats a pattern
// ending in "/" as a subtree; everything else under it falls through to notFound.
func exact(pattern string, h RouteHandler, notFound RouteHandler) RouteHandler {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pattern {
			notFound(w, r)
			return
		}
		h(w, r)
	}
}
