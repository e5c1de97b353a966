// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ambermind/chat-controller/internal/core/cache"
	"github.com/ambermind/chat-controller/internal/core/docdb"
)

// HealthHandler handles health check endpoints. The cache and document
// database clients are nil when the REST backend is configured; only the
// wired components are checked.
type HealthHandler struct {
	cacheClient cache.Client
	docDBClient docdb.Client
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cacheClient cache.Client, docDBClient docdb.Client) *HealthHandler {
	return &HealthHandler{
		cacheClient: cacheClient,
		docDBClient: docDBClient,
	}
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// Health handles the /health endpoint.
func (h *HealthHandler) Health(c *gin.Context) {
	components := make(map[string]string)
	healthy := true

	if h.cacheClient != nil {
		if err := h.cacheClient.Ping(c.Request.Context()); err != nil {
			components["cache"] = "unhealthy"
			healthy = false
		} else {
			components["cache"] = "healthy"
		}
	}

	if h.docDBClient != nil {
		if err := h.docDBClient.Ping(c.Request.Context()); err != nil {
			components["docdb"] = "unhealthy"
			healthy = false
		} else {
			components["docdb"] = "healthy"
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:     status,
		Components: components,
	})
}

// Live handles the /live endpoint.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
