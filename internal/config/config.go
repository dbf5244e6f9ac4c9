// Package config loads runtime configuration from the environment. A .env
// file in the working directory is honored for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const defaultTokenTTL = 24 * time.Hour

// Config holds everything the binaries need.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// DatabaseURL is the Postgres connection string. Empty means the API
	// runs on the in-memory store (local development only).
	DatabaseURL string

	// JWTSecret signs and verifies access tokens. Required.
	JWTSecret string

	// TokenTTL is how long issued tokens stay valid.
	TokenTTL time.Duration

	// BQProject and BQDataset configure the warehouse exporter. Empty
	// BQProject disables exports.
	BQProject string
	BQDataset string
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        envOr("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenTTL:    defaultTokenTTL,
		BQProject:   os.Getenv("BQ_PROJECT"),
		BQDataset:   envOr("BQ_DATASET", "finance"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("Load: JWT_SECRET is required")
	}

	if ttl := os.Getenv("JWT_TTL"); ttl != "" {
		parsed, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("Load: parsing JWT_TTL: %w", err)
		}
		cfg.TokenTTL = parsed
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
