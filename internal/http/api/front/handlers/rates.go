package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/logging"
	"github.com/toolcatalog/toolcatalog/internal/rates"
)

// Public error messages for the rates endpoint.
const (
	msgRatesNotConfigured = "Exchange rates are not configured. An administrator needs to add an API key."
	msgRatesUnavailable   = "Failed to fetch exchange rates"
)

// RatesFetcher resolves rate mappings for a base currency.
type RatesFetcher interface {
	GetRates(ctx context.Context, base string) (map[string]float64, error)
}

// RatesHandler serves exchange rates to public pages.
type RatesHandler struct {
	gateway RatesFetcher
}

// NewRatesHandler constructs a RatesHandler.
func NewRatesHandler(gateway RatesFetcher) *RatesHandler {
	return &RatesHandler{gateway: gateway}
}

// Get returns rates for ?base=, USD by default.
func (h *RatesHandler) Get(c *gin.Context) {
	result, errRates := h.gateway.GetRates(c.Request.Context(), c.Query("base"))
	if errRates == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "rates": result})
		return
	}

	var upstream *rates.UpstreamError
	switch {
	case errors.Is(errRates, rates.ErrInvalidBase):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base currency"})
	case errors.Is(errRates, rates.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgRatesNotConfigured})
	case errors.As(errRates, &upstream) && upstream.Diagnostic() != "":
		c.JSON(http.StatusInternalServerError, gin.H{"error": upstream.Diagnostic()})
	default:
		log.WithError(errRates).WithField("request_id", logging.GetGinRequestID(c)).Error("rates: request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgRatesUnavailable})
	}
}
