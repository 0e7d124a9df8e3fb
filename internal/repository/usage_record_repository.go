package repository

import (
	"assistant-api/internal/models"
	apperrors "assistant-api/internal/pkg/errors"
	"context"

	"gorm.io/gorm"
)

type UsageRecordRepository interface {
	Create(ctx context.Context, record *models.UsageRecord) error
	List(ctx context.Context, filter models.UsageRecordFilter) ([]models.UsageRecord, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type usageRecordRepository struct {
	db *gorm.DB
}

func NewUsageRecordRepository(db *gorm.DB) UsageRecordRepository {
	return &usageRecordRepository{db: db}
}

func (r *usageRecordRepository) Create(ctx context.Context, record *models.UsageRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.Wrap(err, "failed to create usage record")
	}
	return nil
}

// List returns matching records, newest first.
func (r *usageRecordRepository) List(ctx context.Context, filter models.UsageRecordFilter) ([]models.UsageRecord, error) {
	q := r.db.WithContext(ctx).Model(&models.UsageRecord{})
	if !filter.From.IsZero() {
		q = q.Where("timestamp >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("timestamp <= ?", filter.To)
	}
	if filter.Model != "" {
		q = q.Where("model = ?", filter.Model)
	}

	var records []models.UsageRecord
	if err := q.Order("timestamp desc").Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to list usage records")
	}
	return records, nil
}

func (r *usageRecordRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.UsageRecord{})
	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "failed to clear usage records")
	}
	return result.RowsAffected, nil
}
