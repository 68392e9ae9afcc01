package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	FalAPIKey        string
	FalBaseURL       string
	FalQueueBaseURL  string
	ModelsConfigPath string
	StoragePath      string
	StorageBaseURL   string
	ImageTimeout     time.Duration
	VideoTimeout     time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// DATABASE_URL is optional: without it the short-URL service runs on its
// in-memory cache only.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		FalAPIKey:        os.Getenv("FAL_KEY"),
		FalBaseURL:       getEnv("FAL_API_BASE_URL", "https://fal.run"),
		FalQueueBaseURL:  getEnv("FAL_QUEUE_BASE_URL", "https://queue.fal.run"),
		ModelsConfigPath: os.Getenv("MODELS_CONFIG_PATH"),
		StoragePath:      getEnv("STORAGE_PATH", "./data/static"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "/static"),
		ImageTimeout:     time.Second * time.Duration(getEnvInt("IMAGE_TIMEOUT_SECONDS", 30)),
		VideoTimeout:     time.Second * time.Duration(getEnvInt("VIDEO_TIMEOUT_SECONDS", 60)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.ImageTimeout <= 0 || cfg.VideoTimeout <= 0 {
		return nil, fmt.Errorf("generation timeouts must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
