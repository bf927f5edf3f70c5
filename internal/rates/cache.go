package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/toolcatalog/toolcatalog/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	cacheKeyPrefix = "rates_"
	redisEntryTTL  = 24 * time.Hour
)

// Entry is a cached rate mapping and the time it was fetched.
type Entry struct {
	Rates     map[string]float64 `json:"value"`
	Timestamp time.Time          `json:"timestamp"`
}

// Cache stores one Entry per base currency. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, base string) (*Entry, error)
	Put(ctx context.Context, base string, entry Entry) error
}

// CacheKey returns the cache document key for base.
func CacheKey(base string) string {
	return cacheKeyPrefix + base
}

// GormCache keeps entries in the cache table.
type GormCache struct {
	db *gorm.DB
}

// NewGormCache constructs a GormCache.
func NewGormCache(db *gorm.DB) *GormCache {
	return &GormCache{db: db}
}

// Get loads the entry for base.
func (c *GormCache) Get(ctx context.Context, base string) (*Entry, error) {
	var rows []models.CacheEntry
	if errFind := c.db.WithContext(ctx).
		Where("key = ?", CacheKey(base)).
		Limit(1).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("rates: load cache: %w", errFind)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var rates map[string]float64
	if errUnmarshal := json.Unmarshal(rows[0].Value, &rates); errUnmarshal != nil {
		return nil, fmt.Errorf("rates: decode cache: %w", errUnmarshal)
	}
	return &Entry{Rates: rates, Timestamp: rows[0].Timestamp}, nil
}

// Put upserts the entry for base.
func (c *GormCache) Put(ctx context.Context, base string, entry Entry) error {
	value, errMarshal := json.Marshal(entry.Rates)
	if errMarshal != nil {
		return fmt.Errorf("rates: encode cache: %w", errMarshal)
	}
	row := models.CacheEntry{
		Key:       CacheKey(base),
		Value:     datatypes.JSON(value),
		Timestamp: entry.Timestamp.UTC(),
	}
	if errUpsert := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "timestamp"}),
	}).Create(&row).Error; errUpsert != nil {
		return fmt.Errorf("rates: store cache: %w", errUpsert)
	}
	return nil
}

// RedisCache keeps entries as JSON strings in Redis. Keys expire after a day;
// freshness is still judged by the stored timestamp.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache constructs a RedisCache. prefix namespaces the keys.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(base string) string {
	return c.prefix + CacheKey(base)
}

// Get loads the entry for base.
func (c *RedisCache) Get(ctx context.Context, base string) (*Entry, error) {
	raw, errGet := c.client.Get(ctx, c.key(base)).Bytes()
	if errGet != nil {
		if errors.Is(errGet, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("rates: redis get: %w", errGet)
	}
	var entry Entry
	if errUnmarshal := json.Unmarshal(raw, &entry); errUnmarshal != nil {
		return nil, fmt.Errorf("rates: decode redis entry: %w", errUnmarshal)
	}
	return &entry, nil
}

// Put overwrites the entry for base.
func (c *RedisCache) Put(ctx context.Context, base string, entry Entry) error {
	entry.Timestamp = entry.Timestamp.UTC()
	raw, errMarshal := json.Marshal(entry)
	if errMarshal != nil {
		return fmt.Errorf("rates: encode redis entry: %w", errMarshal)
	}
	if errSet := c.client.Set(ctx, c.key(base), raw, redisEntryTTL).Err(); errSet != nil {
		return fmt.Errorf("rates: redis set: %w", errSet)
	}
	return nil
}
