package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/toolcatalog/toolcatalog/internal/settings"
)

// GetAdBlockPolicy returns the public ad-block policy.
func GetAdBlockPolicy(service *settings.AdBlockService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, service.Get(c.Request.Context()))
	}
}
