package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grantwell/grantwell/internal/domain"
	"github.com/grantwell/grantwell/internal/repository"
)

// SavedGrantsHandler handles the tracked grant CRUD surface.
type SavedGrantsHandler struct {
	repo *repository.SavedGrantRepository
}

// NewSavedGrantsHandler creates a new saved grants handler.
// Parameters:
//   - repo: saved grant repository.
// Returns:
//   - *SavedGrantsHandler: initialized handler.
func NewSavedGrantsHandler(repo *repository.SavedGrantRepository) *SavedGrantsHandler {
	return &SavedGrantsHandler{repo: repo}
}

// SaveGrantRequest represents the save API request body: a standardized
// grant snapshot plus optional notes.
type SaveGrantRequest struct {
	Grant domain.Grant `json:"grant" binding:"required"`
	Notes string       `json:"notes"`
}

// UpdateStatusRequest represents the status update request body.
type UpdateStatusRequest struct {
	Status domain.SavedGrantStatus `json:"status" binding:"required,oneof=tracked applied closed"`
}

// Save handles POST /api/v1/saved-grants.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SavedGrantsHandler) Save(c *gin.Context) {
	var req SaveGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}
	if req.Grant.Title == "" || req.Grant.Source == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Grant title and source are required",
		})
		return
	}

	sg := domain.FromGrant(uuid.New().String(), req.Grant)
	sg.Notes = req.Notes

	if err := h.repo.Save(c.Request.Context(), &sg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save grant: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, sg)
}

// List handles GET /api/v1/saved-grants.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SavedGrantsHandler) List(c *gin.Context) {
	status := domain.SavedGrantStatus(c.Query("status"))

	grants, err := h.repo.List(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list saved grants: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"saved_grants": grants,
		"total":        len(grants),
	})
}

// UpdateStatus handles PATCH /api/v1/saved-grants/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SavedGrantsHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	id := c.Param("id")
	if err := h.repo.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Saved grant not found: " + id,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update status: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// Delete handles DELETE /api/v1/saved-grants/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SavedGrantsHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Saved grant not found: " + id,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete saved grant: " + err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}
