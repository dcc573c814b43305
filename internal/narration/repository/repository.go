// Package repository persists synthesized audio so cache entries survive
// restarts.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("audio record not found")

// DB yields a gorm handle. frame's datastore pool satisfies it.
type DB interface {
	DB(ctx context.Context, readOnly bool) *gorm.DB
}

// Repository provides access to audio records.
type Repository struct {
	pool DB
}

// NewRepository creates a new audio record repository.
func NewRepository(pool DB) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// Migrate creates or updates the audio record table.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db(ctx, false).AutoMigrate(&AudioRecord{})
}

// GetByCacheKey returns the record stored for a cache key digest.
func (r *Repository) GetByCacheKey(ctx context.Context, cacheKey string) (*AudioRecord, error) {
	var rec AudioRecord
	err := r.db(ctx, true).Where("cache_key = ?", cacheKey).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Upsert inserts rec or, when its cache key exists, overwrites the stored
// audio description.
func (r *Repository) Upsert(ctx context.Context, rec *AudioRecord) error {
	return r.db(ctx, false).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content_type", "size_bytes", "duration_seconds", "blob_key", "modified_at",
		}),
	}).Create(rec).Error
}

// CountByProvider returns how many records each provider has archived.
func (r *Repository) CountByProvider(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Provider string
		Total    int64
	}
	err := r.db(ctx, true).Model(&AudioRecord{}).
		Select("provider, count(*) as total").
		Group("provider").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Provider] = row.Total
	}
	return out, nil
}

// DeleteByCacheKey permanently removes the record for a cache key digest.
func (r *Repository) DeleteByCacheKey(ctx context.Context, cacheKey string) error {
	return r.db(ctx, false).Unscoped().Where("cache_key = ?", cacheKey).Delete(&AudioRecord{}).Error
}
