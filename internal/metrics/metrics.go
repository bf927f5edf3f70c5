// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RateCacheLookupsTotal counts rate cache lookups by result (hit, miss, stale, error).
	RateCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toolcatalog",
		Subsystem: "rates",
		Name:      "cache_lookups_total",
		Help:      "Rate cache lookups by result",
	}, []string{"result"})

	// RateProviderCallsTotal counts outbound provider calls by outcome.
	RateProviderCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toolcatalog",
		Subsystem: "rates",
		Name:      "provider_calls_total",
		Help:      "Exchange rate provider calls by outcome",
	}, []string{"outcome"})

	// RateProviderDuration tracks provider call latency.
	RateProviderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "toolcatalog",
		Subsystem: "rates",
		Name:      "provider_call_duration_seconds",
		Help:      "Exchange rate provider call duration in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toolcatalog",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "toolcatalog",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AdminLoginsTotal counts admin login attempts by result.
	AdminLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toolcatalog",
		Subsystem: "admin",
		Name:      "logins_total",
		Help:      "Admin login attempts by result",
	}, []string{"result"})

	// UsageRolloverKeysTotal counts keys reset by the monthly rollover job.
	UsageRolloverKeysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "toolcatalog",
		Subsystem: "usage",
		Name:      "rollover_keys_total",
		Help:      "API keys reset by the monthly usage rollover",
	})
)
