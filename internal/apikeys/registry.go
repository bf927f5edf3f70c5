// Package apikeys manages outbound provider credentials and their usage counters.
package apikeys

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/models"
	"github.com/toolcatalog/toolcatalog/internal/security"
	"github.com/toolcatalog/toolcatalog/internal/util"
	"gorm.io/gorm"
)

// Registry errors.
var (
	// ErrNotFound indicates the key id does not exist.
	ErrNotFound = errors.New("api key not found")
	// ErrInvalidInput indicates rejected admin input.
	ErrInvalidInput = errors.New("invalid input")
)

// CreateInput holds the admin-supplied fields of a new key.
type CreateInput struct {
	Key          string          `json:"key"`
	Provider     models.Provider `json:"provider"`
	MonthlyLimit int64           `json:"monthlyLimit"`
	RequestCount int64           `json:"requestCount"`
	IsActive     *bool           `json:"isActive"`
}

// UpdateInput holds optional fields merged into an existing key.
type UpdateInput struct {
	Key          *string          `json:"key"`
	Provider     *models.Provider `json:"provider"`
	MonthlyLimit *int64           `json:"monthlyLimit"`
	RequestCount *int64           `json:"requestCount"`
	IsActive     *bool            `json:"isActive"`
}

// Registry provides CRUD and usage accounting over api_keys.
type Registry struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRegistry constructs a Registry backed by db.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db, now: time.Now}
}

// SetClock overrides the time source.
func (r *Registry) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// List returns every key ordered by insertion. Requires an admin context.
func (r *Registry) List(ctx context.Context) ([]models.APIKey, error) {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return nil, errAuth
	}
	var rows []models.APIKey
	if errFind := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("apikeys: list: %w", errFind)
	}
	return rows, nil
}

// Create validates and inserts a key. Requires an admin context.
func (r *Registry) Create(ctx context.Context, in CreateInput) (*models.APIKey, error) {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return nil, errAuth
	}
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	provider := models.Provider(strings.ToLower(strings.TrimSpace(string(in.Provider))))
	if !provider.Valid() {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, in.Provider)
	}
	if in.MonthlyLimit < 0 || in.RequestCount < 0 {
		return nil, fmt.Errorf("%w: counters must not be negative", ErrInvalidInput)
	}

	now := r.now().UTC()
	row := models.APIKey{
		Key:           key,
		Provider:      provider,
		MonthlyLimit:  in.MonthlyLimit,
		RequestCount:  in.RequestCount,
		LastResetDate: now,
		IsActive:      in.IsActive == nil || *in.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if errCreate := r.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, fmt.Errorf("apikeys: create: %w", errCreate)
	}
	log.WithFields(log.Fields{"id": row.ID, "provider": row.Provider, "key": util.HideAPIKey(row.Key)}).Info("api key created")
	return &row, nil
}

// Update merges the non-nil fields of in into key id. Requires an admin context.
func (r *Registry) Update(ctx context.Context, id uint64, in UpdateInput) (*models.APIKey, error) {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return nil, errAuth
	}

	updates := map[string]any{}
	if in.Key != nil {
		key := strings.TrimSpace(*in.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: key is required", ErrInvalidInput)
		}
		updates["key"] = key
	}
	if in.Provider != nil {
		provider := models.Provider(strings.ToLower(strings.TrimSpace(string(*in.Provider))))
		if !provider.Valid() {
			return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, *in.Provider)
		}
		updates["provider"] = provider
	}
	if in.MonthlyLimit != nil {
		if *in.MonthlyLimit < 0 {
			return nil, fmt.Errorf("%w: monthlyLimit must not be negative", ErrInvalidInput)
		}
		updates["monthly_limit"] = *in.MonthlyLimit
	}
	if in.RequestCount != nil {
		if *in.RequestCount < 0 {
			return nil, fmt.Errorf("%w: requestCount must not be negative", ErrInvalidInput)
		}
		updates["request_count"] = *in.RequestCount
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	updates["updated_at"] = r.now().UTC()

	var row models.APIKey
	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.APIKey{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&row, "id = ?", id).Error
	})
	if errTx != nil {
		if errors.Is(errTx, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("apikeys: update: %w", errTx)
	}
	return &row, nil
}

// Delete removes key id. Requires an admin context.
func (r *Registry) Delete(ctx context.Context, id uint64) error {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return errAuth
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.APIKey{})
	if res.Error != nil {
		return fmt.Errorf("apikeys: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetUsage zeroes the request counter of key id and stamps the reset date. Requires an admin context.
func (r *Registry) ResetUsage(ctx context.Context, id uint64) (*models.APIKey, error) {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return nil, errAuth
	}
	now := r.now().UTC()
	var row models.APIKey
	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.APIKey{}).Where("id = ?", id).Updates(map[string]any{
			"request_count":   0,
			"last_reset_date": now,
			"updated_at":      now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&row, "id = ?", id).Error
	})
	if errTx != nil {
		if errors.Is(errTx, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("apikeys: reset usage: %w", errTx)
	}
	return &row, nil
}

// SelectActiveKey returns the first active key for provider in insertion order, or nil when none exists.
func (r *Registry) SelectActiveKey(ctx context.Context, provider models.Provider) (*models.APIKey, error) {
	var rows []models.APIKey
	if errFind := r.db.WithContext(ctx).
		Where("provider = ? AND is_active = ?", provider, true).
		Order("id ASC").
		Limit(1).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("apikeys: select active key: %w", errFind)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// RecordUsage atomically increments the request counter of key id.
// A vanished id is not an error.
func (r *Registry) RecordUsage(ctx context.Context, id uint64) error {
	if errUpdate := r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		UpdateColumn("request_count", gorm.Expr("request_count + ?", 1)).Error; errUpdate != nil {
		return fmt.Errorf("apikeys: record usage: %w", errUpdate)
	}
	return nil
}

// RolloverMonthly zeroes the counters of keys last reset before the start of now's month.
// It returns the number of keys reset.
func (r *Registry) RolloverMonthly(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	res := r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("last_reset_date < ?", monthStart).
		Updates(map[string]any{
			"request_count":   0,
			"last_reset_date": now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("apikeys: monthly rollover: %w", res.Error)
	}
	return res.RowsAffected, nil
}
