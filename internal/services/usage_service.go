package services

import (
	"assistant-api/internal/logger"
	"assistant-api/internal/models"
	apperrors "assistant-api/internal/pkg/errors"
	"assistant-api/internal/repository"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type UsageService interface {
	UsableKeys(ctx context.Context, model string, candidates []string) ([]string, error)
	RecordUsage(ctx context.Context, sessionID, model string, usage models.UsageMetadata, id models.KeyIdentifier, forceIncrement bool) error
	DailyUsage(ctx context.Context) (*DailyUsage, error)
	Limits(ctx context.Context) (models.DailyLimits, error)
	SetLimit(ctx context.Context, model string, limit int) error
	ClearHistory(ctx context.Context) (int64, error)
}

// DailyUsage is a point-in-time copy of today's ledger and the active limits.
type DailyUsage struct {
	Ledger *models.UsageLedger `json:"dailyUsage"`
	Limits models.DailyLimits  `json:"dailyLimits"`
}

type usageService struct {
	mu            sync.Mutex
	store         repository.StateStore
	records       repository.UsageRecordRepository
	notifier      *ThresholdNotifier
	defaultLimits models.DailyLimits
	now           func() time.Time
}

type UsageServiceOption func(*usageService)

// WithClock replaces time.Now, mostly for tests that cross midnight.
func WithClock(now func() time.Time) UsageServiceOption {
	return func(s *usageService) {
		s.now = now
	}
}

// WithDefaultLimits seeds the limits used until any limit has been persisted.
func WithDefaultLimits(limits map[string]int) UsageServiceOption {
	return func(s *usageService) {
		s.defaultLimits = models.DailyLimits{}
		for m, l := range limits {
			if l > 0 {
				s.defaultLimits[m] = l
			}
		}
	}
}

func NewUsageService(store repository.StateStore, records repository.UsageRecordRepository, notifier *ThresholdNotifier, opts ...UsageServiceOption) UsageService {
	s := &usageService{
		store:    store,
		records:  records,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load reads the persisted state and rolls the ledger over to today.
// The returned flag reports whether the state changed and must be saved.
func (s *usageService) load(ctx context.Context) (*models.PersistedState, bool, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, false, err
	}

	today := models.DayOf(s.now())
	dirty := false
	if state.DailyUsage == nil {
		state.DailyUsage = models.NewUsageLedger(today)
		dirty = true
	} else if state.DailyUsage.ResetIfStale(today) {
		logger.LogEvent(logrus.InfoLevel, "Daily usage reset", logrus.Fields{"date": today})
		dirty = true
	}
	if state.DailyLimits == nil {
		state.DailyLimits = models.DailyLimits{}
		for m, l := range s.defaultLimits {
			state.DailyLimits[m] = l
		}
		dirty = true
	}
	return state, dirty, nil
}

func (s *usageService) UsableKeys(ctx context.Context, model string, candidates []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, dirty, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if dirty {
		if err := s.store.Save(ctx, state); err != nil {
			return nil, err
		}
	}
	return SelectUsableKeys(model, candidates, state.DailyUsage, state.DailyLimits), nil
}

func (s *usageService) RecordUsage(ctx context.Context, sessionID, model string, usage models.UsageMetadata, id models.KeyIdentifier, forceIncrement bool) error {
	if id == "" {
		logger.LogEvent(logrus.WarnLevel, "Usage not recorded: missing key identifier", logrus.Fields{"model": model})
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, _, err := s.load(ctx)
	if err != nil {
		return err
	}

	total := usage.TotalTokenCount
	state.DailyUsage.Apply(id, model, total, forceIncrement)

	if total > 0 && s.records != nil {
		record := &models.UsageRecord{
			SessionID:    sessionID,
			Timestamp:    s.now().UTC(),
			Model:        model,
			PromptTokens: usage.PromptTokenCount,
			OutputTokens: usage.CandidatesTokenCount,
			TotalTokens:  total,
		}
		if err := s.records.Create(ctx, record); err != nil {
			logger.LogEvent(logrus.ErrorLevel, "Failed to append usage record", logrus.Fields{
				"error": err.Error(),
				"model": model,
			})
		}
	}

	if s.notifier != nil {
		s.notifier.CheckAndNotify(state.DailyUsage, state.DailyLimits, model, id)
	}

	if err := s.store.Save(ctx, state); err != nil {
		return err
	}

	logger.LogEvent(logrus.DebugLevel, "Usage recorded", logrus.Fields{
		"key":    id,
		"model":  model,
		"tokens": total,
		"calls":  state.DailyUsage.CallCount(id, model),
		"forced": forceIncrement,
	})
	return nil
}

func (s *usageService) DailyUsage(ctx context.Context) (*DailyUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	limits := models.DailyLimits{}
	for m, l := range state.DailyLimits {
		limits[m] = l
	}
	return &DailyUsage{Ledger: state.DailyUsage.Clone(), Limits: limits}, nil
}

func (s *usageService) Limits(ctx context.Context) (models.DailyLimits, error) {
	usage, err := s.DailyUsage(ctx)
	if err != nil {
		return nil, err
	}
	return usage.Limits, nil
}

// SetLimit stores a daily call limit for model. Zero removes the limit.
func (s *usageService) SetLimit(ctx context.Context, model string, limit int) error {
	if model == "" {
		return apperrors.New(apperrors.ErrInvalidInput, apperrors.CodeInvalidInput, "model is required")
	}
	if limit < 0 {
		return apperrors.New(apperrors.ErrInvalidInput, apperrors.CodeInvalidInput,
			fmt.Sprintf("daily limit for %s must not be negative", model))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	if limit == 0 {
		delete(state.DailyLimits, model)
	} else {
		state.DailyLimits[model] = limit
	}
	return s.store.Save(ctx, state)
}

// ClearHistory deletes every usage record and restarts today's ledger.
func (s *usageService) ClearHistory(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	if s.records != nil {
		n, err := s.records.DeleteAll(ctx)
		if err != nil {
			return 0, err
		}
		deleted = n
	}

	state, _, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	state.DailyUsage.Reset(models.DayOf(s.now()))
	if err := s.store.Save(ctx, state); err != nil {
		return 0, err
	}

	logger.LogEvent(logrus.InfoLevel, "Usage history cleared", logrus.Fields{"records_deleted": deleted})
	return deleted, nil
}
