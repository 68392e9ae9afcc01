package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ResolveVideo handles GET /video/{key}: it resolves a shortened video URL
// and redirects the client to the original location.
func (a *App) ResolveVideo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	url, ok := a.Shortener.Resolve(r.Context(), key)
	if !ok {
		a.jsonError(w, http.StatusNotFound, "video not found", nil)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
