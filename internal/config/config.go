package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/dhruvshah/sunbeam/internal/storage"
)

// Config holds everything read from the environment.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string
	Storage  storage.S3Config
}

// Load reads configuration from the environment, with an optional .env file
// for development.
func Load() *Config {
	// .env is optional; ignore the error when absent.
	_ = godotenv.Load()

	return &Config{
		Port:     envOr("SUNBEAM_PORT", "8080"),
		DBPath:   envOr("SUNBEAM_DB_PATH", "sunbeam.db"),
		LogLevel: envOr("SUNBEAM_LOG_LEVEL", "info"),
		Storage: storage.S3Config{
			Endpoint:  os.Getenv("SUNBEAM_S3_ENDPOINT"),
			Bucket:    os.Getenv("SUNBEAM_S3_BUCKET"),
			Region:    envOr("SUNBEAM_S3_REGION", "auto"),
			AccessKey: os.Getenv("SUNBEAM_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("SUNBEAM_S3_SECRET_KEY"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
