package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"smartcapi-client/internal/guard"
)

// MountViews registers every route of the view table. Each serves the
// single-page shell from staticDir; the page picks the view from the
// path. Callers put the route guard in front.
func MountViews(r chi.Router, staticDir string) {
	index := filepath.Join(staticDir, "index.html")
	serveIndex := func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(index); err != nil {
			writeError(w, http.StatusNotFound, "View shell not found")
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, index)
	}

	for _, route := range guard.Routes {
		r.Get(route.Path, serveIndex)
	}
}

// Assets serves static files under /assets/.
func Assets(staticDir string) http.Handler {
	return http.StripPrefix("/assets/", http.FileServer(http.Dir(filepath.Join(staticDir, "assets"))))
}
