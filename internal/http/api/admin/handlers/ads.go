package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/toolcatalog/toolcatalog/internal/ads"
)

// AdHandler manages admin CRUD for ad placements.
type AdHandler struct {
	service *ads.Service
}

// NewAdHandler constructs an AdHandler.
func NewAdHandler(service *ads.Service) *AdHandler {
	return &AdHandler{service: service}
}

// List returns all ads.
func (h *AdHandler) List(c *gin.Context) {
	rows, errList := h.service.List(c.Request.Context())
	if errList != nil {
		writeServiceError(c, "list ads", errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ads": rows})
}

// Create inserts an ad.
func (h *AdHandler) Create(c *gin.Context) {
	var body ads.CreateInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	row, errCreate := h.service.Create(c.Request.Context(), body)
	if errCreate != nil {
		writeServiceError(c, "create ad", errCreate)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// Update merges fields into an ad.
func (h *AdHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var body ads.UpdateInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	row, errUpdate := h.service.Update(c.Request.Context(), id, body)
	if errUpdate != nil {
		writeServiceError(c, "update ad", errUpdate)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Delete removes an ad.
func (h *AdHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if errDelete := h.service.Delete(c.Request.Context(), id); errDelete != nil {
		writeServiceError(c, "delete ad", errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
