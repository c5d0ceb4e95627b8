package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grantwell/grantwell/internal/sources"
)

// SourcesHandler exposes the source catalog and its validation surface.
type SourcesHandler struct {
	registry *sources.Registry
}

// NewSourcesHandler creates a new sources handler.
// Parameters:
//   - registry: source registry.
// Returns:
//   - *SourcesHandler: initialized handler.
func NewSourcesHandler(registry *sources.Registry) *SourcesHandler {
	return &SourcesHandler{registry: registry}
}

// sourceSummary is the public view of a source descriptor. Credentials and
// auth details never leave the process.
type sourceSummary struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Enabled            bool   `json:"enabled"`
	CredentialRequired bool   `json:"credential_required"`
	Credentialed       bool   `json:"credentialed"`
}

// ListSources handles GET /api/v1/sources.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SourcesHandler) ListSources(c *gin.Context) {
	all := h.registry.All()
	summaries := make([]sourceSummary, 0, len(all))
	for _, d := range all {
		summaries = append(summaries, sourceSummary{
			ID:                 d.ID,
			Name:               d.Name,
			Enabled:            d.Enabled,
			CredentialRequired: d.CredentialRequired,
			Credentialed:       d.Credential != "",
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": summaries,
		"total":   len(summaries),
	})
}

// Validate handles GET /api/v1/sources/validate.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SourcesHandler) Validate(c *gin.Context) {
	report := h.registry.Validate()

	healths := make([]sources.SourceHealth, 0)
	for _, d := range h.registry.All() {
		healths = append(healths, h.registry.CheckSourceHealth(d.ID))
	}

	c.JSON(http.StatusOK, gin.H{
		"report":  report,
		"sources": healths,
	})
}
