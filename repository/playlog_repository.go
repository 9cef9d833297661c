package repository

import (
	"context"

	"Playa/model"

	"gorm.io/gorm"
)

// DefaultHistoryLimit bounds Recent when the caller asks for nothing sensible.
const DefaultHistoryLimit = 50

// PlayLogRepository stores what has been played.
type PlayLogRepository interface {
	Record(ctx context.Context, entry *model.PlayLog) error
	// Recent returns the latest entries, newest first.
	Recent(ctx context.Context, limit int) ([]*model.PlayLog, error)
}

type gormPlayLogRepository struct {
	db *gorm.DB
}

func NewGormPlayLogRepository(db *gorm.DB) PlayLogRepository {
	return &gormPlayLogRepository{db: db}
}

func (r *gormPlayLogRepository) Record(ctx context.Context, entry *model.PlayLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *gormPlayLogRepository) Recent(ctx context.Context, limit int) ([]*model.PlayLog, error) {
	var entries []*model.PlayLog
	err := recentQuery(r.db.WithContext(ctx), limit).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func recentQuery(db *gorm.DB, limit int) *gorm.DB {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return db.Model(&model.PlayLog{}).Order("started_at DESC").Order("id DESC").Limit(limit)
}

// NopPlayLogRepository is used when no database is configured.
type NopPlayLogRepository struct{}

func (NopPlayLogRepository) Record(context.Context, *model.PlayLog) error { return nil }

func (NopPlayLogRepository) Recent(context.Context, int) ([]*model.PlayLog, error) {
	return []*model.PlayLog{}, nil
}
