package db

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the api_keys, ads, settings and cache tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.APIKey{},
		&models.Ad{},
		&models.Setting{},
		&models.CacheEntry{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	log.WithField("dialect", DialectName(conn)).Debug("db: migrations applied")
	return nil
}
