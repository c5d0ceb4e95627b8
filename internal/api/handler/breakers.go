package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grantwell/grantwell/internal/api/middleware"
	"github.com/grantwell/grantwell/internal/manager"
)

// BreakersHandler exposes circuit breaker status and manual recovery.
type BreakersHandler struct {
	manager *manager.Manager
}

// NewBreakersHandler creates a new breakers handler.
// Parameters:
//   - m: API manager holding the per-source breakers.
// Returns:
//   - *BreakersHandler: initialized handler.
func NewBreakersHandler(m *manager.Manager) *BreakersHandler {
	return &BreakersHandler{manager: m}
}

// ListStatus handles GET /api/v1/status/breakers.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *BreakersHandler) ListStatus(c *gin.Context) {
	statuses := h.manager.AllBreakerStatuses()
	c.JSON(http.StatusOK, gin.H{
		"breakers": statuses,
		"total":    len(statuses),
	})
}

// Status handles GET /api/v1/status/breakers/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *BreakersHandler) Status(c *gin.Context) {
	sourceID := c.Param("id")
	status, ok := h.manager.BreakerStatus(sourceID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown source: " + sourceID,
		})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Reset handles POST /api/v1/status/breakers/:id/reset.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *BreakersHandler) Reset(c *gin.Context) {
	sourceID := c.Param("id")
	if !h.manager.ResetBreaker(sourceID) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown source: " + sourceID,
		})
		return
	}

	middleware.GetLogger(c).WithField("source", sourceID).Info("Breaker reset requested via API")

	status, _ := h.manager.BreakerStatus(sourceID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Circuit breaker reset",
		"status":  status,
	})
}
