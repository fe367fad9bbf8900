// Package config loads service configuration from environment variables.
// Every value has a development-friendly default; production deployments are
// expected to set them explicitly.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime settings
type Config struct {
	ServerAddress string
	Environment   string
	LogLevel      string

	// DocumentDir is the directory holding parameter and case files.
	DocumentDir string

	EnableCORS bool

	// JWTSecret enables bearer-token auth on the API when non-empty.
	JWTSecret string
	JWTIssuer string
}

// Load reads configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DocumentDir:   getEnv("DOCUMENT_DIR", "./documents"),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "flowsync"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that would fail at runtime
func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("SERVER_ADDRESS must not be empty")
	}
	if c.DocumentDir == "" {
		return fmt.Errorf("DOCUMENT_DIR must not be empty")
	}
	switch c.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Environment)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
