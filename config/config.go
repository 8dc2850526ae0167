package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	MongoURI      string `env:"MONGOURI" envDefault:"mongodb://127.0.0.1:27017"`
	DBName        string `env:"DB" envDefault:"wanderlust"`
	SessionSecret string `env:"SESSION_SECRET"`

	RedisAddr     string `env:"REDIS_ADD" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS"`

	// Object storage; all three must be present to use MinIO, otherwise
	// uploads fall back to local disk.
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"wanderlust-images"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	MaxUploadBytes int64  `env:"MAX_UPLOAD_SIZE_BYTES" envDefault:"20971520"`
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"uploads"`

	MapTilerKey string `env:"MAPTILER_API_KEY"`
}

// Load reads .env when present, then parses the environment. A missing
// .env file is not an error; the process environment wins either way.
func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config from environment: %w", err)
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET not set in environment")
	}
	return cfg, nil
}

// ObjectStorageConfigured reports whether the MinIO credential set is
// complete enough to use remote storage.
func (c *Config) ObjectStorageConfigured() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}
