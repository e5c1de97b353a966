package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambermind/chat-controller/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	// Act
	cfg, err := config.Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "docstore", cfg.Gateway.Type)
	assert.Equal(t, "http://localhost:5000", cfg.Gateway.RESTURL)
	assert.Equal(t, 30*time.Second, cfg.Gateway.RESTTimeout)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "mongodb", cfg.DocDB.Type)
	assert.Equal(t, "ambermind", cfg.DocDB.Database)
	assert.Equal(t, 250*time.Millisecond, cfg.Render.Deadline)
	assert.Empty(t, cfg.Secrets.EncryptionKey)
	assert.Equal(t, "enter", cfg.UI.SendKey)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	// Arrange
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("GATEWAY_TYPE", "rest")
	t.Setenv("REST_BACKEND_URL", "http://backend:7000")
	t.Setenv("REST_BACKEND_TIMEOUT_SECONDS", "5")
	t.Setenv("RENDER_DEADLINE_MS", "100")
	t.Setenv("PROFILE_ENCRYPTION_KEY", "abc123")
	t.Setenv("SEND_KEY", "shift-enter")

	// Act
	cfg, err := config.Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "rest", cfg.Gateway.Type)
	assert.Equal(t, "http://backend:7000", cfg.Gateway.RESTURL)
	assert.Equal(t, 5*time.Second, cfg.Gateway.RESTTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Render.Deadline)
	assert.Equal(t, "abc123", cfg.Secrets.EncryptionKey)
	assert.Equal(t, "shift-enter", cfg.UI.SendKey)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	// Arrange
	t.Setenv("SERVER_PORT", "not-a-number")

	// Act
	cfg, err := config.Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestServerConfig_Address(t *testing.T) {
	// Arrange
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8081}

	// Act / Assert
	assert.Equal(t, "127.0.0.1:8081", cfg.Address())
}
