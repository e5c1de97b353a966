// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	Gateway GatewayConfig
	Cache   CacheConfig
	DocDB   DocDBConfig
	Render  RenderConfig
	Secrets SecretsConfig
	UI      UIConfig
	Log     LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host    string
	Port    int
	GinMode string
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GatewayConfig holds chat backend configuration.
type GatewayConfig struct {
	// Type selects the backend implementation: "rest" or "docstore".
	Type string
	// RESTURL is the base URL of the REST backend.
	RESTURL string
	// RESTTimeout bounds one REST request.
	RESTTimeout time.Duration
}

// CacheConfig holds cache-related configuration.
type CacheConfig struct {
	Type     string
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// DocDBConfig holds document database configuration.
type DocDBConfig struct {
	Type     string
	URI      string
	Database string
}

// RenderConfig holds markdown rendering configuration.
type RenderConfig struct {
	// Deadline bounds one markdown conversion.
	Deadline time.Duration
}

// SecretsConfig holds secret material loaded from the environment.
type SecretsConfig struct {
	// EncryptionKey protects cached user profiles at rest.
	EncryptionKey string
}

// UIConfig holds presentation behavior configuration.
type UIConfig struct {
	// SendKey selects the compose submit key: "enter" or "shift-enter".
	SendKey string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvAsInt("SERVER_PORT", 8080),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Gateway: GatewayConfig{
			Type:        getEnv("GATEWAY_TYPE", "docstore"),
			RESTURL:     getEnv("REST_BACKEND_URL", "http://localhost:5000"),
			RESTTimeout: time.Duration(getEnvAsInt("REST_BACKEND_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Cache: CacheConfig{
			Type:     getEnv("CACHE_TYPE", "redis"),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 1800)) * time.Second,
		},
		DocDB: DocDBConfig{
			Type:     getEnv("DOCDB_TYPE", "mongodb"),
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "ambermind"),
		},
		Render: RenderConfig{
			Deadline: time.Duration(getEnvAsInt("RENDER_DEADLINE_MS", 250)) * time.Millisecond,
		},
		Secrets: SecretsConfig{
			EncryptionKey: getEnv("PROFILE_ENCRYPTION_KEY", ""),
		},
		UI: UIConfig{
			SendKey: getEnv("SEND_KEY", "enter"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
