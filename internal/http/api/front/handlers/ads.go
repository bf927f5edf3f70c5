package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/ads"
)

// AdHandler serves the active ad of a slot.
type AdHandler struct {
	service *ads.Service
}

// NewAdHandler constructs an AdHandler.
func NewAdHandler(service *ads.Service) *AdHandler {
	return &AdHandler{service: service}
}

// GetBySlot returns {ad: ...} or {ad: null}.
func (h *AdHandler) GetBySlot(c *gin.Context) {
	ad, errLookup := h.service.GetActiveAdForSlot(c.Request.Context(), c.Param("slot"))
	if errLookup != nil {
		log.WithError(errLookup).Warn("ads: slot lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ad lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ad": ad})
}
