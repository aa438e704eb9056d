// Package config loads process configuration from a fixed set of
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/api needs to start serving.
type Config struct {
	DatabaseURL        string
	BindAddress        string
	DBMaxConnections   int32
	RateLimitPerMinute int
	OTLPEndpoint       string
}

// Load reads and validates configuration from the environment. A .env
// file in the working directory is loaded first, best-effort, so local
// development does not require exporting variables by hand.
func Load() (*Config, error) {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	bindAddress := os.Getenv("BIND_ADDRESS")
	if bindAddress == "" {
		bindAddress = "0.0.0.0:8080"
	}

	maxConns, err := getEnvInt32("DB_MAX_CONNECTIONS", 20)
	if err != nil {
		return nil, err
	}

	rateLimit, err := getEnvInt("RATE_LIMIT_PER_MINUTE", 100)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:        databaseURL,
		BindAddress:        bindAddress,
		DBMaxConnections:   maxConns,
		RateLimitPerMinute: rateLimit,
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt32(key string, fallback int32) (int32, error) {
	n, err := getEnvInt(key, int(fallback))
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}
