package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/toolcatalog/toolcatalog/internal/apikeys"
)

// APIKeyHandler manages admin CRUD for outbound provider keys.
type APIKeyHandler struct {
	registry *apikeys.Registry
}

// NewAPIKeyHandler constructs an APIKeyHandler.
func NewAPIKeyHandler(registry *apikeys.Registry) *APIKeyHandler {
	return &APIKeyHandler{registry: registry}
}

// List returns all keys.
func (h *APIKeyHandler) List(c *gin.Context) {
	rows, errList := h.registry.List(c.Request.Context())
	if errList != nil {
		writeServiceError(c, "list api keys", errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKeys": rows})
}

// Create inserts a key.
func (h *APIKeyHandler) Create(c *gin.Context) {
	var body apikeys.CreateInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	row, errCreate := h.registry.Create(c.Request.Context(), body)
	if errCreate != nil {
		writeServiceError(c, "create api key", errCreate)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// Update merges fields into a key.
func (h *APIKeyHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var body apikeys.UpdateInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	row, errUpdate := h.registry.Update(c.Request.Context(), id, body)
	if errUpdate != nil {
		writeServiceError(c, "update api key", errUpdate)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Delete removes a key.
func (h *APIKeyHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if errDelete := h.registry.Delete(c.Request.Context(), id); errDelete != nil {
		writeServiceError(c, "delete api key", errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetUsage zeroes a key's request counter.
func (h *APIKeyHandler) ResetUsage(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	row, errReset := h.registry.ResetUsage(c.Request.Context(), id)
	if errReset != nil {
		writeServiceError(c, "reset api key usage", errReset)
		return
	}
	c.JSON(http.StatusOK, row)
}
