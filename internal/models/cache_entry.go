package models

import (
	"time"

	"gorm.io/datatypes"
)

// CacheEntry is a generic keyed cache document.
type CacheEntry struct {
	Key       string         `gorm:"type:varchar(255);primaryKey"` // Cache key, e.g. rates_USD.
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`          // Cached payload.
	Timestamp time.Time      `gorm:"not null"`                     // Last refresh time.
}

// TableName pins the table name to the logical collection name.
func (CacheEntry) TableName() string { return "cache" }
