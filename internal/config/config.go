// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the service reads at startup.
type Config struct {
	Port        string
	Environment string // development, production

	DatabaseURL string // postgres DSN; empty means local sqlite
	SQLitePath  string
	RedisURL    string // empty disables the redis layer

	GeminiAPIKey string
	FlashModel   string // model for per-step generation
	ProModel     string // model for prototype synthesis

	RetryMaxAttempts   int
	RetryBaseDelay     time.Duration
	RetryRateLimitBase time.Duration

	// Minimum spacing between expert calls within one forge run.
	PacingInterval time.Duration

	ForgeRunTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "ideaforge.db"),
		RedisURL:           os.Getenv("REDIS_URL"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		FlashModel:         getEnv("GEMINI_FLASH_MODEL", "gemini-2.0-flash"),
		ProModel:           getEnv("GEMINI_PRO_MODEL", "gemini-1.5-pro"),
		RetryMaxAttempts:   getEnvInt("RETRY_MAX_ATTEMPTS", 4),
		RetryBaseDelay:     getEnvDuration("RETRY_BASE_DELAY", time.Second),
		RetryRateLimitBase: getEnvDuration("RETRY_RATE_LIMIT_DELAY", 3*time.Second),
		PacingInterval:     getEnvDuration("FORGE_PACING_INTERVAL", 800*time.Millisecond),
		ForgeRunTimeout:    getEnvDuration("FORGE_RUN_TIMEOUT", 20*time.Minute),
	}

	if cfg.Environment == "production" && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required in production")
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", cfg.RetryMaxAttempts)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
