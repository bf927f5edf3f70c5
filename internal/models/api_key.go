package models

import "time"

// Provider identifies the upstream service an API key authenticates against.
type Provider string

// Known providers.
const (
	// ProviderExchangeRate is the exchange-rate data provider used by the rate gateway.
	ProviderExchangeRate Provider = "exchangerate"
	// ProviderOther covers keys stored for tools that call other services.
	ProviderOther Provider = "other"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderExchangeRate, ProviderOther:
		return true
	}
	return false
}

// APIKey stores an outbound provider credential and its usage counters.
type APIKey struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	Key      string   `gorm:"type:text;not null" json:"key"`                   // Provider credential.
	Provider Provider `gorm:"type:varchar(64);not null;index" json:"provider"` // Provider identifier.

	MonthlyLimit  int64     `gorm:"not null;default:0" json:"monthlyLimit"` // Soft monthly ceiling, not enforced.
	RequestCount  int64     `gorm:"not null;default:0" json:"requestCount"` // Successful provider calls since last reset.
	LastResetDate time.Time `gorm:"not null" json:"lastResetDate"`          // When RequestCount was last zeroed.

	IsActive bool `gorm:"not null;index" json:"isActive"` // Only active keys are selectable.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}

// LimitReached reports whether the soft monthly limit has been hit.
func (k *APIKey) LimitReached() bool {
	return k.MonthlyLimit > 0 && k.RequestCount >= k.MonthlyLimit
}
