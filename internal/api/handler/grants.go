package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grantwell/grantwell/internal/logger"
	"github.com/grantwell/grantwell/internal/manager"
)

// GrantsHandler handles grant fetching and cross-source search.
type GrantsHandler struct {
	manager *manager.Manager
}

// NewGrantsHandler creates a new grants handler.
// Parameters:
//   - m: API manager coordinating all sources.
// Returns:
//   - *GrantsHandler: initialized handler.
func NewGrantsHandler(m *manager.Manager) *GrantsHandler {
	return &GrantsHandler{manager: m}
}

// SearchRequest represents the cross-source search API request.
type SearchRequest struct {
	Query   string            `json:"query" binding:"required"`
	Filters map[string]string `json:"filters"`
}

// SourceGrants handles GET /api/v1/sources/:id/grants.
// Query parameters are forwarded to the source as fetch params.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *GrantsHandler) SourceGrants(c *gin.Context) {
	sourceID := c.Param("id")

	params := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	grants := h.manager.GrantsFromSource(c.Request.Context(), sourceID, params)

	c.JSON(http.StatusOK, gin.H{
		"source": sourceID,
		"grants": grants,
		"total":  len(grants),
	})
}

// Search handles POST /api/v1/search.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *GrantsHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	searchID := uuid.New().String()
	ctx := logger.SetSearchID(c.Request.Context(), searchID)

	results := h.manager.SearchOpportunities(ctx, req.Query, req.Filters)

	c.JSON(http.StatusOK, gin.H{
		"search_id": searchID,
		"query":     req.Query,
		"results":   results,
		"total":     len(results),
	})
}

// GrantDetails handles GET /api/v1/grants/:id.
// The optional source query parameter directs the lookup to one source;
// without it every enabled source is probed.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *GrantsHandler) GrantDetails(c *gin.Context) {
	grantID := c.Param("id")
	source := c.Query("source")

	grant := h.manager.GrantDetails(c.Request.Context(), grantID, source)
	if grant == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Grant not found: " + grantID,
		})
		return
	}

	c.JSON(http.StatusOK, grant)
}
