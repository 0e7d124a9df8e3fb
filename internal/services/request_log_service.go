package services

import (
	"assistant-api/internal/models"
	"assistant-api/internal/repository"
	"context"
	"time"
)

type RequestLogService interface {
	LogRequest(ctx context.Context, log *models.RequestLog) error
	GetSessionLogs(ctx context.Context, sessionID string, from, to time.Time) ([]models.RequestLog, error)
	GetRecent(ctx context.Context, limit int) ([]models.RequestLog, error)
}

type requestLogService struct {
	repo repository.RequestLogRepository
}

func NewRequestLogService(repo repository.RequestLogRepository) RequestLogService {
	return &requestLogService{repo: repo}
}

func (s *requestLogService) LogRequest(ctx context.Context, log *models.RequestLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	return s.repo.Create(ctx, log)
}

func (s *requestLogService) GetSessionLogs(ctx context.Context, sessionID string, from, to time.Time) ([]models.RequestLog, error) {
	return s.repo.GetSessionLogs(ctx, sessionID, from, to)
}

func (s *requestLogService) GetRecent(ctx context.Context, limit int) ([]models.RequestLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.GetRecent(ctx, limit)
}
