// Package http assembles the gin engine and its middleware.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/toolcatalog/toolcatalog/internal/http/api/admin"
	adminhandlers "github.com/toolcatalog/toolcatalog/internal/http/api/admin/handlers"
	"github.com/toolcatalog/toolcatalog/internal/http/api/front"
	"github.com/toolcatalog/toolcatalog/internal/logging"
	"gorm.io/gorm"
)

// RouterConfig wires the services and infrastructure behind the router.
type RouterConfig struct {
	DB             *gorm.DB
	Redis          redis.UniversalClient // optional
	Admin          admin.Services
	Front          front.Services
	AllowedOrigins []string
}

// NewEngine builds the gin engine with logging, recovery and every route.
func NewEngine(cfg RouterConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(logging.GinLogger(), gin.Recovery())

	healthHandler := adminhandlers.NewHealthHandler(cfg.DB, cfg.Redis)
	engine.GET("/healthz", healthHandler.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin.RegisterAdminRoutes(engine, cfg.Admin)
	front.RegisterFrontRoutes(engine, cfg.Front)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}

// NewHandler wraps the engine with CORS. Credentials are allowed so the
// admin session cookie travels on cross-origin dashboard requests.
func NewHandler(cfg RouterConfig) http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Origin", "X-Requested-With", logging.RequestIDHeader},
		ExposedHeaders:   []string{logging.RequestIDHeader},
		AllowCredentials: true,
	})
	return corsHandler.Handler(NewEngine(cfg))
}
