package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rpriscu/ai-image-generator/internal/falclient"
	"github.com/rpriscu/ai-image-generator/internal/generation"
	"github.com/rpriscu/ai-image-generator/internal/handler"
	"github.com/rpriscu/ai-image-generator/internal/http/handlers"
	httpapi "github.com/rpriscu/ai-image-generator/internal/http/httpapi"
	"github.com/rpriscu/ai-image-generator/internal/infra"
	"github.com/rpriscu/ai-image-generator/internal/infra/credentials"
	"github.com/rpriscu/ai-image-generator/internal/registry"
	"github.com/rpriscu/ai-image-generator/internal/shorturl"
	"github.com/rpriscu/ai-image-generator/internal/sqlinline"
	"github.com/rpriscu/ai-image-generator/internal/storage"
)

const shortURLMaxAge = 30 * 24 * time.Hour

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// DB pool is optional: without DATABASE_URL the service still runs, with
	// short URLs held in memory and credentials read from the environment.
	var sqlRunner *infra.SQLRunner
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		sqlRunner = infra.NewSQLRunner(dbpool, logger)

		if _, err := sqlRunner.Exec(ctx, sqlinline.QCreateIntegrationTokensTable); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate integration tokens table")
		}
	}

	// Credentials: DB-stored key wins, FAL_KEY from the environment is the
	// fallback.
	envKeys := map[string]string{credentials.ProviderFal: cfg.FalAPIKey}
	var credStore *credentials.Store
	if sqlRunner != nil {
		credStore = credentials.NewStore(sqlRunner, envKeys)
	} else {
		credStore = credentials.NewStore(nil, envKeys)
	}
	apiKey, err := credStore.FalAPIKey(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve fal api key")
	}
	if apiKey == "" {
		logger.Warn().Msg("no fal api key configured, generation requests will fail")
	}

	// Model catalog: JSON file override, built-in catalog otherwise.
	configs := registry.DefaultCatalog()
	if cfg.ModelsConfigPath != "" {
		configs, err = registry.LoadCatalogFile(cfg.ModelsConfigPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.ModelsConfigPath).Msg("failed to load model catalog")
		}
	}
	models, err := registry.New(configs)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid model catalog")
	}
	handlerRegistry := handler.NewRegistry(models.List())
	logger.Info().Int("models", handlerRegistry.Len()).Msg("model catalog loaded")

	client := falclient.NewClient(falclient.Options{
		APIKey:       apiKey,
		BaseURL:      cfg.FalBaseURL,
		QueueBaseURL: cfg.FalQueueBaseURL,
		Logger:       &logger,
		ImageTimeout: cfg.ImageTimeout,
		VideoTimeout: cfg.VideoTimeout,
	})

	var shortStore shorturl.Store
	if sqlRunner != nil {
		pgStore := shorturl.NewPGStore(sqlRunner)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate short urls table")
		}
		shortStore = pgStore
	}
	shortener := shorturl.New(shortStore, &logger)

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.StoragePath).Msg("failed to init file store")
	}

	service := generation.NewService(models, handlerRegistry, client, shortener, store, cfg.StorageBaseURL, &logger)

	app := handlers.NewApp(service, models, shortener, store, logger)
	router := httpapi.NewRouter(app, cfg)
	server := infra.NewHTTPServer(cfg, router)

	// Expired short URL mappings are swept hourly.
	janitorCtx, janitorCancel := context.WithCancel(ctx)
	defer janitorCancel()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				removed, err := shortener.CleanupOlderThan(janitorCtx, shortURLMaxAge)
				if err != nil {
					logger.Warn().Err(err).Msg("short url cleanup failed")
					continue
				}
				if removed > 0 {
					logger.Info().Int64("removed", removed).Msg("short url cleanup")
				}
			}
		}
	}()

	// Start async
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
