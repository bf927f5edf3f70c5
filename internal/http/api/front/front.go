// Package front registers the public read API used by page renderers.
package front

import (
	"github.com/gin-gonic/gin"
	"github.com/toolcatalog/toolcatalog/internal/ads"
	"github.com/toolcatalog/toolcatalog/internal/http/api/front/handlers"
	"github.com/toolcatalog/toolcatalog/internal/settings"
)

// Services bundles the components behind the public routes.
type Services struct {
	Rates   handlers.RatesFetcher
	Ads     *ads.Service
	AdBlock *settings.AdBlockService
}

// RegisterFrontRoutes registers unauthenticated read routes.
func RegisterFrontRoutes(r *gin.Engine, svc Services) {
	if r == nil {
		return
	}

	api := r.Group("/api")

	ratesHandler := handlers.NewRatesHandler(svc.Rates)
	api.GET("/exchange-rates", ratesHandler.Get)

	adHandler := handlers.NewAdHandler(svc.Ads)
	api.GET("/ads/:slot", adHandler.GetBySlot)

	api.GET("/adblock-policy", handlers.GetAdBlockPolicy(svc.AdBlock))
}
