package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/quill/internal/service"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	orch *service.Orchestrator
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(orch *service.Orchestrator) *HealthHandler {
	return &HealthHandler{orch: orch}
}

// Health reports provider availability. The service is degraded when no
// provider family is available.
func (h *HealthHandler) Health(c *gin.Context) {
	providers := h.orch.Providers()
	status := "degraded"
	for _, ok := range providers {
		if ok {
			status = "ok"
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           status,
		"providers":        providers,
		"available_models": len(h.orch.Models()),
	})
}

// Models handles GET /api/v1/models.
func (h *HealthHandler) Models(c *gin.Context) {
	models := h.orch.Models()
	c.JSON(http.StatusOK, gin.H{"models": models, "total": len(models)})
}
