package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/toolcatalog/toolcatalog/internal/settings"
)

// AdBlockHandler reads and updates the ad-block policy.
type AdBlockHandler struct {
	service *settings.AdBlockService
}

// NewAdBlockHandler constructs an AdBlockHandler.
func NewAdBlockHandler(service *settings.AdBlockService) *AdBlockHandler {
	return &AdBlockHandler{service: service}
}

// Get returns the current policy.
func (h *AdBlockHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Get(c.Request.Context()))
}

// Set replaces the policy.
func (h *AdBlockHandler) Set(c *gin.Context) {
	var body struct {
		Enabled *bool  `json:"enabled"`
		Message string `json:"message"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}
	policy, errSet := h.service.Set(c.Request.Context(), settings.AdBlockPolicy{Enabled: *body.Enabled, Message: body.Message})
	if errSet != nil {
		writeServiceError(c, "update adblock policy", errSet)
		return
	}
	c.JSON(http.StatusOK, policy)
}
