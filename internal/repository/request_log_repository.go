package repository

import (
	"assistant-api/internal/models"
	"context"
	"time"

	"gorm.io/gorm"
)

type RequestLogRepository interface {
	Create(ctx context.Context, log *models.RequestLog) error
	GetSessionLogs(ctx context.Context, sessionID string, from, to time.Time) ([]models.RequestLog, error)
	GetRecent(ctx context.Context, limit int) ([]models.RequestLog, error)
}

type requestLogRepository struct {
	db *gorm.DB
}

func NewRequestLogRepository(db *gorm.DB) RequestLogRepository {
	return &requestLogRepository{db: db}
}

func (r *requestLogRepository) Create(ctx context.Context, log *models.RequestLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *requestLogRepository) GetSessionLogs(ctx context.Context, sessionID string, from, to time.Time) ([]models.RequestLog, error) {
	var logs []models.RequestLog
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND timestamp BETWEEN ? AND ?", sessionID, from, to).
		Order("timestamp desc").
		Find(&logs).Error
	return logs, err
}

func (r *requestLogRepository) GetRecent(ctx context.Context, limit int) ([]models.RequestLog, error) {
	var logs []models.RequestLog
	err := r.db.WithContext(ctx).
		Order("timestamp desc").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
