package config

import (
	"os"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	CORSOrigins string
	// Storage
	StorageDir   string
	ThumbnailDir string
	// Logging
	LogDir string
	// Thumbnail worker
	ThumbnailQueueSize int
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        env,
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWKSURL:            getEnv("JWKS_URL", ""),
		CORSOrigins:        getEnv("CORS_ORIGINS", "http://localhost:3000"),
		StorageDir:         getEnv("STORAGE_DIR", "./data/content"),
		ThumbnailDir:       getEnv("THUMBNAIL_DIR", "./data/thumbnails"),
		LogDir:             getEnv("LOG_DIR", "./data/logs"),
		ThumbnailQueueSize: 256,
		Debug:              getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
