package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alfa-chat/internal/ws"
)

// HealthHandler reporta vida del proceso y sesiones activas.
type HealthHandler struct {
	registry *ws.Registry
}

func NewHealthHandler(registry *ws.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// Health maneja GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"active_sessions": h.registry.Count(),
	})
}
