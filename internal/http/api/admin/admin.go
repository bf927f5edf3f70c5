// Package admin registers the session-gated management API.
package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/toolcatalog/toolcatalog/internal/ads"
	"github.com/toolcatalog/toolcatalog/internal/apikeys"
	"github.com/toolcatalog/toolcatalog/internal/http/api/admin/handlers"
	"github.com/toolcatalog/toolcatalog/internal/security"
	"github.com/toolcatalog/toolcatalog/internal/settings"
)

// Services bundles the components behind the admin routes.
type Services struct {
	Sessions *security.SessionAuthority
	Keys     *apikeys.Registry
	Ads      *ads.Service
	AdBlock  *settings.AdBlockService
}

// RegisterAdminRoutes registers login/logout and the session-gated management routes.
func RegisterAdminRoutes(r *gin.Engine, svc Services) {
	if r == nil || svc.Sessions == nil {
		return
	}

	admin := r.Group("/api/admin")

	authHandler := handlers.NewAuthHandler(svc.Sessions)
	admin.POST("/login", authHandler.Login)
	admin.POST("/logout", authHandler.Logout)

	authed := admin.Group("")
	authed.Use(adminSessionMiddleware(svc.Sessions))
	authed.GET("/session", authHandler.Session)

	apiKeyHandler := handlers.NewAPIKeyHandler(svc.Keys)
	authed.GET("/api-keys", apiKeyHandler.List)
	authed.POST("/api-keys", apiKeyHandler.Create)
	authed.PUT("/api-keys/:id", apiKeyHandler.Update)
	authed.DELETE("/api-keys/:id", apiKeyHandler.Delete)
	authed.POST("/api-keys/:id/reset-usage", apiKeyHandler.ResetUsage)

	adHandler := handlers.NewAdHandler(svc.Ads)
	authed.GET("/ads", adHandler.List)
	authed.POST("/ads", adHandler.Create)
	authed.PUT("/ads/:id", adHandler.Update)
	authed.DELETE("/ads/:id", adHandler.Delete)

	adBlockHandler := handlers.NewAdBlockHandler(svc.AdBlock)
	authed.GET("/adblock-policy", adBlockHandler.Get)
	authed.PUT("/adblock-policy", adBlockHandler.Set)
}
