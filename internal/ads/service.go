// Package ads manages ad placements and serves the active ad of a slot.
package ads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/models"
	"github.com/toolcatalog/toolcatalog/internal/security"
	"gorm.io/gorm"
)

const (
	slotCacheTTL     = 60 * time.Second
	slotCacheCleanup = 5 * time.Minute
)

var (
	// ErrNotFound indicates the ad id does not exist.
	ErrNotFound = errors.New("ad not found")
	// ErrInvalidInput indicates rejected admin input.
	ErrInvalidInput = errors.New("invalid input")
)

// CreateInput holds the fields of a new ad.
type CreateInput struct {
	Slot     string          `json:"slot"`
	Code     string          `json:"code"`
	Position models.Position `json:"position"`
	IsActive *bool           `json:"isActive"`
}

// UpdateInput holds optional fields merged into an existing ad.
type UpdateInput struct {
	Slot     *string          `json:"slot"`
	Code     *string          `json:"code"`
	Position *models.Position `json:"position"`
	IsActive *bool            `json:"isActive"`
}

// Service provides admin CRUD over ads and the public slot lookup.
// Activating an ad deactivates every other active ad on its slot.
type Service struct {
	db    *gorm.DB
	slots *cache.Cache
	now   func() time.Time

	// generation is bumped by every mutation; slot lookups that straddle one are not cached.
	generation atomic.Uint64
}

// NewService constructs a Service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:    db,
		slots: cache.New(slotCacheTTL, slotCacheCleanup),
		now:   time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns every ad ordered by id. Requires an admin context.
func (s *Service) List(ctx context.Context) ([]models.Ad, error) {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return nil, errAuth
	}
	var rows []models.Ad
	if errFind := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("ads: list: %w", errFind)
	}
	return rows, nil
}

// Create validates and inserts an ad. Requires an admin context.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Ad, error) {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return nil, errAuth
	}
	slot := strings.TrimSpace(in.Slot)
	if slot == "" {
		return nil, fmt.Errorf("%w: slot is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Code) == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	position, errPosition := normalizePosition(in.Position)
	if errPosition != nil {
		return nil, errPosition
	}

	now := s.now().UTC()
	row := models.Ad{
		Slot:      slot,
		Code:      in.Code,
		Position:  position,
		IsActive:  in.IsActive == nil || *in.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&row).Error; errCreate != nil {
			return errCreate
		}
		if row.IsActive {
			return deactivateOthers(tx, row.Slot, row.ID, now)
		}
		return nil
	})
	if errTx != nil {
		return nil, fmt.Errorf("ads: create: %w", errTx)
	}
	s.invalidate()
	log.WithFields(log.Fields{"id": row.ID, "slot": row.Slot, "active": row.IsActive}).Info("ad created")
	return &row, nil
}

// Update merges the non-nil fields of in into ad id. Requires an admin context.
func (s *Service) Update(ctx context.Context, id uint64, in UpdateInput) (*models.Ad, error) {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return nil, errAuth
	}

	now := s.now().UTC()
	updates := map[string]any{"updated_at": now}
	if in.Slot != nil {
		slot := strings.TrimSpace(*in.Slot)
		if slot == "" {
			return nil, fmt.Errorf("%w: slot is required", ErrInvalidInput)
		}
		updates["slot"] = slot
	}
	if in.Code != nil {
		if strings.TrimSpace(*in.Code) == "" {
			return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
		}
		updates["code"] = *in.Code
	}
	if in.Position != nil {
		position, errPosition := normalizePosition(*in.Position)
		if errPosition != nil {
			return nil, errPosition
		}
		updates["position"] = position
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	var row models.Ad
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Ad{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if errFind := tx.First(&row, "id = ?", id).Error; errFind != nil {
			return errFind
		}
		if row.IsActive {
			return deactivateOthers(tx, row.Slot, row.ID, now)
		}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ads: update: %w", errTx)
	}
	s.invalidate()
	return &row, nil
}

// Delete removes ad id. Requires an admin context.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return errAuth
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Ad{})
	if res.Error != nil {
		return fmt.Errorf("ads: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.invalidate()
	return nil
}

// GetActiveAdForSlot returns the active ad of slot, or nil when the slot has none.
// Results are cached briefly; admin mutations flush the cache.
func (s *Service) GetActiveAdForSlot(ctx context.Context, slot string) (*models.Ad, error) {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return nil, nil
	}
	if cached, ok := s.slots.Get(slot); ok {
		return copyAd(cached.(*models.Ad)), nil
	}

	gen := s.generation.Load()
	var rows []models.Ad
	if errFind := s.db.WithContext(ctx).
		Where("slot = ? AND is_active = ?", slot, true).
		Order("id ASC").
		Limit(1).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("ads: lookup slot: %w", errFind)
	}
	var ad *models.Ad
	if len(rows) > 0 {
		ad = &rows[0]
	}
	if s.generation.Load() == gen {
		s.slots.SetDefault(slot, ad)
	}
	return copyAd(ad), nil
}

func (s *Service) invalidate() {
	s.generation.Add(1)
	s.slots.Flush()
}

func deactivateOthers(tx *gorm.DB, slot string, keepID uint64, now time.Time) error {
	res := tx.Model(&models.Ad{}).
		Where("slot = ? AND is_active = ? AND id <> ?", slot, true, keepID).
		Updates(map[string]any{"is_active": false, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.WithFields(log.Fields{"slot": slot, "kept": keepID, "deactivated": res.RowsAffected}).Info("ads: deactivated previous active ads on slot")
	}
	return nil
}

func normalizePosition(position models.Position) (models.Position, error) {
	normalized := models.Position(strings.ToLower(strings.TrimSpace(string(position))))
	if !normalized.Valid() {
		return "", fmt.Errorf("%w: unknown position %q", ErrInvalidInput, position)
	}
	return normalized, nil
}

func copyAd(ad *models.Ad) *models.Ad {
	if ad == nil {
		return nil
	}
	out := *ad
	return &out
}
