package handlers

import (
	"net/http"
)

type modelJSON struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	OutputKind         string `json:"output_kind"`
	Description        string `json:"description"`
	SupportsImageInput bool   `json:"supports_image_input"`
	MaxOutputs         int    `json:"max_outputs"`
	DefaultNumOutputs  int    `json:"default_num_outputs"`
}

// ListModels handles GET /api/models. Internal flags (strategy, alternate
// formats) stay private; the UI only needs the selection surface.
func (a *App) ListModels(w http.ResponseWriter, r *http.Request) {
	configs := a.Models.List()
	out := make([]modelJSON, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, modelJSON{
			ID:                 cfg.ID,
			Name:               cfg.Name,
			Type:               string(cfg.Archetype),
			OutputKind:         string(cfg.OutputKind),
			Description:        cfg.Description,
			SupportsImageInput: cfg.SupportsImageInput,
			MaxOutputs:         cfg.MaxOutputs,
			DefaultNumOutputs:  cfg.DefaultNumOutputs,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"models": out})
}
