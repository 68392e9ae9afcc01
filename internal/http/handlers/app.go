package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rpriscu/ai-image-generator/internal/generation"
	"github.com/rpriscu/ai-image-generator/internal/infra"
	"github.com/rpriscu/ai-image-generator/internal/registry"
	"github.com/rpriscu/ai-image-generator/internal/shorturl"
	"github.com/rpriscu/ai-image-generator/internal/storage"
)

// App is the handler container: everything the routes need, injected once at
// startup.
type App struct {
	Service   *generation.Service
	Models    *registry.Registry
	Shortener *shorturl.Shortener
	Store     *storage.FileStore
	Logger    infra.Logger
}

func NewApp(service *generation.Service, models *registry.Registry, shortener *shorturl.Shortener, store *storage.FileStore, logger infra.Logger) *App {
	return &App{
		Service:   service,
		Models:    models,
		Shortener: shortener,
		Store:     store,
		Logger:    logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, message string, details any) {
	body := map[string]any{"error": message}
	if details != nil {
		body["details"] = details
	}
	a.json(w, code, body)
}
