package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambermind/chat-controller/internal/api/handlers"
	"github.com/ambermind/chat-controller/internal/core/cache"
)

// stubCache implements cache.Client with a configurable ping result.
type stubCache struct {
	pingErr error
}

func (s *stubCache) Get(context.Context, string) ([]byte, error)              { return nil, nil }
func (s *stubCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (s *stubCache) Delete(context.Context, string) (bool, error)             { return false, nil }
func (s *stubCache) Publish(context.Context, string, []byte) error            { return nil }
func (s *stubCache) Subscribe(context.Context, string) (cache.Subscription, error) {
	return nil, errors.New("not implemented")
}
func (s *stubCache) Ping(context.Context) error { return s.pingErr }
func (s *stubCache) Close() error               { return nil }

func performHealth(t *testing.T, handler *handlers.HealthHandler) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", handler.Health)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth_NoWiredComponents(t *testing.T) {
	// Arrange: the REST transport wires neither cache nor document db.
	handler := handlers.NewHealthHandler(nil, nil)

	// Act
	w := performHealth(t, handler)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Empty(t, resp.Components)
}

func TestHealth_HealthyCache(t *testing.T) {
	// Arrange
	handler := handlers.NewHealthHandler(&stubCache{}, nil)

	// Act
	w := performHealth(t, handler)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Components["cache"])
}

func TestHealth_UnhealthyCache(t *testing.T) {
	// Arrange
	handler := handlers.NewHealthHandler(&stubCache{pingErr: errors.New("connection refused")}, nil)

	// Act
	w := performHealth(t, handler)

	// Assert
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["cache"])
}

func TestLive(t *testing.T) {
	// Arrange
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/live", handlers.NewHealthHandler(nil, nil).Live)

	// Act
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live", nil))

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")
}
