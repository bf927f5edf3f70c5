package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/models"
	"github.com/toolcatalog/toolcatalog/internal/security"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidInput marks a rejected policy update.
var ErrInvalidInput = errors.New("invalid input")

// AdBlockPolicy controls the site-wide ad-block notice.
type AdBlockPolicy struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// DefaultAdBlockPolicy is returned until an admin stores a policy.
func DefaultAdBlockPolicy() AdBlockPolicy {
	return AdBlockPolicy{Enabled: DefaultAdBlockEnabled, Message: DefaultAdBlockMessage}
}

// AdBlockService reads and writes the ad-block policy singleton.
type AdBlockService struct {
	db   *gorm.DB
	snap *Snapshot
}

// NewAdBlockService constructs an AdBlockService backed by db and the shared settings snapshot.
func NewAdBlockService(db *gorm.DB, snap *Snapshot) *AdBlockService {
	if snap == nil {
		snap = NewSnapshot()
	}
	return &AdBlockService{db: db, snap: snap}
}

// Get returns the stored policy, or the default when none has been set.
func (s *AdBlockService) Get(ctx context.Context) AdBlockPolicy {
	raw, ok := s.snap.Value(AdBlockKey)
	if !ok || len(raw) == 0 {
		return DefaultAdBlockPolicy()
	}
	var policy AdBlockPolicy
	if errUnmarshal := json.Unmarshal(raw, &policy); errUnmarshal != nil {
		log.WithError(errUnmarshal).Warn("settings: stored adblock policy is malformed, using default")
		return DefaultAdBlockPolicy()
	}
	return policy
}

// Set upserts the policy. Requires an admin context.
func (s *AdBlockService) Set(ctx context.Context, policy AdBlockPolicy) (AdBlockPolicy, error) {
	if errAuth := security.RequireAdmin(ctx); errAuth != nil {
		return AdBlockPolicy{}, errAuth
	}
	policy.Message = strings.TrimSpace(policy.Message)
	if policy.Enabled && policy.Message == "" {
		return AdBlockPolicy{}, fmt.Errorf("%w: message is required when enabled", ErrInvalidInput)
	}

	value, errMarshal := json.Marshal(policy)
	if errMarshal != nil {
		return AdBlockPolicy{}, fmt.Errorf("settings: encode adblock policy: %w", errMarshal)
	}
	row := models.Setting{Key: AdBlockKey, Value: value, UpdatedAt: time.Now().UTC()}
	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; errUpsert != nil {
		return AdBlockPolicy{}, fmt.Errorf("settings: save adblock policy: %w", errUpsert)
	}

	if errRefresh := Refresh(ctx, s.db, s.snap); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings: refresh snapshot after adblock update failed")
	}
	return policy, nil
}

// Reload refreshes the snapshot from the database.
func (s *AdBlockService) Reload(ctx context.Context) error {
	return Refresh(ctx, s.db, s.snap)
}
