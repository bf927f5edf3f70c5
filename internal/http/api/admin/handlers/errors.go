package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/ads"
	"github.com/toolcatalog/toolcatalog/internal/apikeys"
	"github.com/toolcatalog/toolcatalog/internal/logging"
	"github.com/toolcatalog/toolcatalog/internal/security"
	"github.com/toolcatalog/toolcatalog/internal/settings"
)

// writeServiceError maps service errors to admin responses. Admin callers
// see validation messages verbatim.
func writeServiceError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, security.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, apikeys.ErrInvalidInput), errors.Is(err, ads.ErrInvalidInput), errors.Is(err, settings.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apikeys.ErrNotFound), errors.Is(err, ads.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.WithError(err).WithField("request_id", logging.GetGinRequestID(c)).Errorf("admin: %s failed", action)
		c.JSON(http.StatusInternalServerError, gin.H{"error": action + " failed"})
	}
}

// parseIDParam reads the :id path parameter.
func parseIDParam(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
