package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/link-resolve-go/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	service *app.ResolverService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service *app.ResolverService) *HealthHandler {
	return &HealthHandler{
		service: service,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Platforms int    `json:"platforms"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   "1.0.0",
		Platforms: len(h.service.Platforms()),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if len(h.service.Platforms()) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "no platforms registered",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
