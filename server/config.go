package server

import (
	"errors"
	"os"
	"strings"
	"time"
)

// DevSecret signs tokens when JWT_SECRET is unset. Never use it outside
// local development.
const DevSecret = "taskcore-dev-secret"

// Config holds server configuration read from the environment
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration
}

// ConfigFromEnv reads PORT, DATABASE_URL, JWT_SECRET and TOKEN_TTL
func ConfigFromEnv() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://taskcore-server.db"),
		JWTSecret:   getEnv("JWT_SECRET", DevSecret),
		TokenTTL:    getEnvAsDuration("TOKEN_TTL", 30*24*time.Hour),
	}
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
