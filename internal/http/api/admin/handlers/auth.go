package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/logging"
	"github.com/toolcatalog/toolcatalog/internal/metrics"
	"github.com/toolcatalog/toolcatalog/internal/security"
)

// AuthHandler handles admin login, logout and session checks.
type AuthHandler struct {
	sessions *security.SessionAuthority
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(sessions *security.SessionAuthority) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the admin password and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if !h.sessions.VerifyAdminPassword(body.Password) {
		metrics.AdminLoginsTotal.WithLabelValues("rejected").Inc()
		log.WithFields(log.Fields{
			"request_id": logging.GetGinRequestID(c),
			"client_ip":  c.ClientIP(),
		}).Warn("admin login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	if _, errSession := h.sessions.CreateAdminSession(c.Writer); errSession != nil {
		log.WithError(errSession).Error("admin login: create session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create session failed"})
		return
	}
	metrics.AdminLoginsTotal.WithLabelValues("accepted").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.ClearAdminSession(c.Writer)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Session reports an authenticated session. Only reachable behind the session middleware.
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}
