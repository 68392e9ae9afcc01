package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rpriscu/ai-image-generator/internal/http/handlers"
	"github.com/rpriscu/ai-image-generator/internal/infra"
	"github.com/rpriscu/ai-image-generator/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/models", app.ListModels)
		r.Post("/archive", app.Archive)

		r.Group(func(r chi.Router) {
			if cfg.RateLimitPerMin > 0 {
				r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
			}
			r.Post("/generate", app.Generate)
		})
	})

	r.Get("/video/{key}", app.ResolveVideo)

	// Generated assets are served straight off disk under the public base URL.
	fileServer := http.StripPrefix(cfg.StorageBaseURL+"/", http.FileServer(http.Dir(app.Store.BasePath())))
	r.Get(cfg.StorageBaseURL+"/*", fileServer.ServeHTTP)

	return r
}
