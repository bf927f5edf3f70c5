package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/toolcatalog/toolcatalog/internal/security"
)

// adminSessionMiddleware rejects requests without a valid admin session cookie
// and marks the request context of those that have one.
func adminSessionMiddleware(sessions *security.SessionAuthority) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if !sessions.VerifyAdminSession(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Request = c.Request.WithContext(security.WithAdmin(c.Request.Context()))
		c.Next()
	}
}
