// Package rates serves exchange rates through a freshness-bounded cache backed by a live provider.
package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/metrics"
	"github.com/toolcatalog/toolcatalog/internal/models"
	"github.com/toolcatalog/toolcatalog/internal/util"
)

const (
	// DefaultBase is used when the caller omits a base currency.
	DefaultBase = "USD"
	// FreshFor bounds how long a cache entry is served without a provider call.
	FreshFor = time.Hour
)

// KeySource selects provider credentials and records their usage.
type KeySource interface {
	SelectActiveKey(ctx context.Context, provider models.Provider) (*models.APIKey, error)
	RecordUsage(ctx context.Context, id uint64) error
}

// Gateway resolves rate mappings cache-first.
type Gateway struct {
	cache    Cache
	keys     KeySource
	provider Provider
	now      func() time.Time
}

// NewGateway constructs a Gateway.
func NewGateway(cache Cache, keys KeySource, provider Provider) *Gateway {
	return &Gateway{cache: cache, keys: keys, provider: provider, now: time.Now}
}

// SetClock overrides the time source.
func (g *Gateway) SetClock(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// NormalizeBase upper-cases base, defaults it to USD and checks it is three ASCII letters.
func NormalizeBase(base string) (string, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return DefaultBase, nil
	}
	if len(base) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidBase, base)
	}
	for i := 0; i < len(base); i++ {
		if base[i] < 'A' || base[i] > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidBase, base)
		}
	}
	return base, nil
}

// GetRates returns the currency to rate mapping for base. A fresh cache entry is
// returned without touching the provider or the key registry.
func (g *Gateway) GetRates(ctx context.Context, base string) (map[string]float64, error) {
	base, errBase := NormalizeBase(base)
	if errBase != nil {
		return nil, errBase
	}

	now := g.now()
	entry, errCache := g.cache.Get(ctx, base)
	switch {
	case errCache != nil:
		metrics.RateCacheLookupsTotal.WithLabelValues("error").Inc()
		log.WithError(errCache).Warnf("rates: cache lookup failed (base=%s)", base)
	case entry == nil:
		metrics.RateCacheLookupsTotal.WithLabelValues("miss").Inc()
	case now.Sub(entry.Timestamp) < FreshFor:
		metrics.RateCacheLookupsTotal.WithLabelValues("hit").Inc()
		return entry.Rates, nil
	default:
		metrics.RateCacheLookupsTotal.WithLabelValues("stale").Inc()
	}

	key, errKey := g.keys.SelectActiveKey(ctx, models.ProviderExchangeRate)
	if errKey != nil {
		return nil, fmt.Errorf("rates: select key: %w", errKey)
	}
	if key == nil {
		return nil, ErrNotConfigured
	}
	if key.LimitReached() {
		log.WithFields(log.Fields{
			"key_id":        key.ID,
			"key":           util.HideAPIKey(key.Key),
			"request_count": key.RequestCount,
			"monthly_limit": key.MonthlyLimit,
		}).Warn("rates: api key has reached its monthly limit")
	}

	started := time.Now()
	quotes, errFetch := g.provider.FetchLive(ctx, key.Key, base)
	metrics.RateProviderDuration.Observe(time.Since(started).Seconds())
	if errFetch != nil {
		metrics.RateProviderCallsTotal.WithLabelValues("error").Inc()
		log.WithError(errFetch).WithField("key_id", key.ID).Warnf("rates: provider call failed (base=%s)", base)
		return nil, errFetch
	}
	metrics.RateProviderCallsTotal.WithLabelValues("success").Inc()

	rates := normalizeQuotes(base, quotes)

	if errPut := g.cache.Put(ctx, base, Entry{Rates: rates, Timestamp: g.now()}); errPut != nil {
		log.WithError(errPut).Warnf("rates: cache write failed (base=%s)", base)
	}
	if errUsage := g.keys.RecordUsage(ctx, key.ID); errUsage != nil {
		log.WithError(errUsage).WithField("key_id", key.ID).Warn("rates: usage increment failed")
	}
	return rates, nil
}

// normalizeQuotes keys pair-encoded quotes by destination code and pins the base rate to 1.
// Pairs not quoted against base are dropped.
func normalizeQuotes(base string, quotes map[string]float64) map[string]float64 {
	rates := make(map[string]float64, len(quotes)+1)
	for pair, value := range quotes {
		code, ok := strings.CutPrefix(pair, base)
		if !ok || code == "" {
			continue
		}
		rates[code] = value
	}
	rates[base] = 1.0
	return rates
}
