package models

import "time"

// Position is where an ad is rendered on a page.
type Position string

// Ad positions.
const (
	PositionTop     Position = "top"
	PositionBottom  Position = "bottom"
	PositionSidebar Position = "sidebar"
	PositionInline  Position = "inline"
)

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	switch p {
	case PositionTop, PositionBottom, PositionSidebar, PositionInline:
		return true
	}
	return false
}

// Ad is an admin-managed markup snippet bound to a named slot.
type Ad struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	Slot     string   `gorm:"type:varchar(255);not null;index:idx_ads_slot_active" json:"slot"` // Placement identifier.
	Code     string   `gorm:"type:text;not null" json:"code"`                                   // Raw markup, rendered unescaped.
	Position Position `gorm:"type:varchar(32);not null" json:"position"`                        // Render position.

	IsActive bool `gorm:"not null;index:idx_ads_slot_active" json:"isActive"` // Public visibility gate.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}
