package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/toolcatalog/toolcatalog/internal/models"
	"gorm.io/gorm"
)

// Refresh reloads all settings rows from the database into snap.
func Refresh(ctx context.Context, db *gorm.DB, snap *Snapshot) error {
	if db == nil || snap == nil {
		return errors.New("settings: nil db or snapshot")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if row.UpdatedAt.UTC().After(maxUpdatedAt) {
			maxUpdatedAt = row.UpdatedAt.UTC()
		}
	}

	snap.Store(maxUpdatedAt, values)
	return nil
}
