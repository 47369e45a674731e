package handler

import (
	"net/http"

	"smartcapi-client/internal/guard"
)

// Navigate answers whether a view may be entered, without entering it
func Navigate(g *guard.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		to := r.URL.Query().Get("to")
		if to == "" {
			writeError(w, http.StatusBadRequest, "Missing target path")
			return
		}
		writeJSON(w, http.StatusOK, g.Evaluate(r.Context(), to, r.URL.Query().Get("from")))
	}
}
