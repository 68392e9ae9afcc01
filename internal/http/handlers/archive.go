package handlers

import (
	"encoding/json"
	"net/http"
	"path"

	zipkg "github.com/rpriscu/ai-image-generator/pkg/zip"
)

const maxArchiveEntries = 50

type archiveRequest struct {
	Keys []string `json:"keys"`
}

// Archive handles POST /api/archive: it bundles previously generated assets
// into one zip download.
func (a *App) Archive(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if len(req.Keys) == 0 {
		a.jsonError(w, http.StatusBadRequest, "keys is required", nil)
		return
	}
	if len(req.Keys) > maxArchiveEntries {
		a.jsonError(w, http.StatusBadRequest, "too many keys", nil)
		return
	}

	assets := make([]zipkg.Asset, 0, len(req.Keys))
	for _, key := range req.Keys {
		data, err := a.Store.Read(r.Context(), key)
		if err != nil {
			a.jsonError(w, http.StatusNotFound, "asset not found", map[string]string{"key": key})
			return
		}
		assets = append(assets, zipkg.Asset{Filename: path.Base(key), Data: data})
	}

	archive, err := zipkg.ArchiveAssets(assets)
	if err != nil {
		a.Logger.Error().Err(err).Msg("archive build failed")
		a.jsonError(w, http.StatusInternalServerError, "could not build archive", nil)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="assets.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
