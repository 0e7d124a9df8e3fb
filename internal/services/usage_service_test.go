package services

import (
	"assistant-api/internal/models"
	apperrors "assistant-api/internal/pkg/errors"
	"assistant-api/internal/repository"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func seedStore(t *testing.T, date string, limits models.DailyLimits, seed func(l *models.UsageLedger)) *repository.MemoryStateStore {
	t.Helper()
	ledger := models.NewUsageLedger(date)
	if seed != nil {
		seed(ledger)
	}
	store := repository.NewMemoryStateStore()
	require.NoError(t, store.Save(context.Background(), &models.PersistedState{DailyUsage: ledger, DailyLimits: limits}))
	return store
}

func seedCalls(id models.KeyIdentifier, model string, n int) func(l *models.UsageLedger) {
	return func(l *models.UsageLedger) {
		for i := 0; i < n; i++ {
			l.Apply(id, model, 0, true)
		}
	}
}

func newTestUsageService(store repository.StateStore, records *memoryRecords, sink NotificationSink, clock *fixedClock) UsageService {
	var repo repository.UsageRecordRepository
	if records != nil {
		repo = records
	}
	return NewUsageService(store, repo, NewThresholdNotifier(sink), WithClock(clock.Now))
}

func TestRecordUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("tokens consumed appends a record and persists", func(t *testing.T) {
		store := seedStore(t, "2026-10-16", models.DailyLimits{}, nil)
		records := &memoryRecords{}
		svc := newTestUsageService(store, records, &captureSink{}, &fixedClock{now: testDay})

		err := svc.RecordUsage(ctx, "s1", "modelX", models.UsageMetadata{PromptTokenCount: 80, CandidatesTokenCount: 40, TotalTokenCount: 120}, "key_ab12", false)
		require.NoError(t, err)

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, state.DailyUsage.CallCount("key_ab12", "modelX"))
		assert.Equal(t, 120, state.DailyUsage.TokenCount("key_ab12", "modelX"))

		all := records.All()
		require.Len(t, all, 1)
		assert.Equal(t, "s1", all[0].SessionID)
		assert.Equal(t, 80, all[0].PromptTokens)
		assert.Equal(t, 40, all[0].OutputTokens)
		assert.Equal(t, 120, all[0].TotalTokens)
		assert.Equal(t, testDay, all[0].Timestamp)
	})

	t.Run("forced zero-token attempt counts a call without a record", func(t *testing.T) {
		store := seedStore(t, "2026-10-16", models.DailyLimits{}, nil)
		records := &memoryRecords{}
		svc := newTestUsageService(store, records, &captureSink{}, &fixedClock{now: testDay})

		require.NoError(t, svc.RecordUsage(ctx, "s1", "modelX", models.UsageMetadata{}, "key_ab12", true))

		state, _ := store.Load(ctx)
		assert.Equal(t, 1, state.DailyUsage.CallCount("key_ab12", "modelX"))
		assert.Equal(t, 0, state.DailyUsage.TokenCount("key_ab12", "modelX"))
		assert.Empty(t, records.All())
	})

	t.Run("zero tokens without force changes nothing", func(t *testing.T) {
		store := seedStore(t, "2026-10-16", models.DailyLimits{}, nil)
		records := &memoryRecords{}
		svc := newTestUsageService(store, records, &captureSink{}, &fixedClock{now: testDay})

		require.NoError(t, svc.RecordUsage(ctx, "s1", "modelX", models.UsageMetadata{}, "key_ab12", false))

		state, _ := store.Load(ctx)
		assert.Equal(t, 0, state.DailyUsage.CallCount("key_ab12", "modelX"))
		assert.Empty(t, records.All())
	})

	t.Run("empty identifier is a no-op", func(t *testing.T) {
		store := seedStore(t, "2026-10-16", models.DailyLimits{}, nil)
		records := &memoryRecords{}
		svc := newTestUsageService(store, records, &captureSink{}, &fixedClock{now: testDay})

		require.NoError(t, svc.RecordUsage(ctx, "s1", "modelX", models.UsageMetadata{TotalTokenCount: 10}, "", false))

		state, _ := store.Load(ctx)
		assert.Empty(t, state.DailyUsage.UsageByKey)
		assert.Empty(t, records.All())
	})

	t.Run("record append failure still persists the ledger", func(t *testing.T) {
		store := seedStore(t, "2026-10-16", models.DailyLimits{}, nil)
		records := &memoryRecords{err: errors.New("db down")}
		svc := newTestUsageService(store, records, &captureSink{}, &fixedClock{now: testDay})

		require.NoError(t, svc.RecordUsage(ctx, "s1", "modelX", models.UsageMetadata{TotalTokenCount: 10}, "key_ab12", false))

		state, _ := store.Load(ctx)
		assert.Equal(t, 1, state.DailyUsage.CallCount("key_ab12", "modelX"))
	})
}

func TestUsageResetsOnNewDay(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, "2026-10-15", models.DailyLimits{"modelX": 5}, func(l *models.UsageLedger) {
		seedCalls("key_ab12", "modelX", 5)(l)
		l.MarkNotified("key_ab12", "modelX")
	})
	clock := &fixedClock{now: time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)}
	svc := newTestUsageService(store, &memoryRecords{}, &captureSink{}, clock)

	keys, err := svc.UsableKeys(ctx, "modelX", []string{"secret_ab12"})
	require.NoError(t, err)
	assert.Empty(t, keys, "key is at its limit before midnight")

	clock.Set(time.Date(2026, 10, 16, 0, 1, 0, 0, time.UTC))
	keys, err = svc.UsableKeys(ctx, "modelX", []string{"secret_ab12"})
	require.NoError(t, err)
	assert.Equal(t, []string{"secret_ab12"}, keys)

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", state.DailyUsage.Date)
	assert.Empty(t, state.DailyUsage.UsageByKey)
	assert.Empty(t, state.DailyUsage.NotifiedLimits)
	assert.Equal(t, 5, state.DailyLimits.Limit("modelX"), "limits survive the daily reset")
}

func TestExampleScenarioAtLimitDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, "2026-10-16", models.DailyLimits{"modelX": 5}, seedCalls("key_ab12", "modelX", 4))
	sink := &captureSink{}
	svc := newTestUsageService(store, &memoryRecords{}, sink, &fixedClock{now: testDay})

	keys, err := svc.UsableKeys(ctx, "modelX", []string{"secret_ab12"})
	require.NoError(t, err)
	assert.Equal(t, []string{"secret_ab12"}, keys)

	require.NoError(t, svc.RecordUsage(ctx, "s1", "modelX", models.UsageMetadata{TotalTokenCount: 120}, "key_ab12", false))

	state, _ := store.Load(ctx)
	assert.Equal(t, 5, state.DailyUsage.CallCount("key_ab12", "modelX"))
	assert.Equal(t, 120, state.DailyUsage.TokenCount("key_ab12", "modelX"))
	assert.Empty(t, sink.Messages())
	assert.False(t, state.DailyUsage.IsNotified("key_ab12", "modelX"))
}

func TestThresholdNotificationFiresOncePerDay(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, "2026-10-16", models.DailyLimits{"modelM": 10}, seedCalls("key_kkkk", "modelM", 7))
	sink := &captureSink{}
	svc := newTestUsageService(store, &memoryRecords{}, sink, &fixedClock{now: testDay})

	require.NoError(t, svc.RecordUsage(ctx, "s1", "modelM", models.UsageMetadata{TotalTokenCount: 5}, "key_kkkk", false))
	require.Len(t, sink.Messages(), 1)
	assert.Contains(t, sink.Messages()[0], "8 of the 10")

	// usage stays at 8
	require.NoError(t, svc.RecordUsage(ctx, "s1", "modelM", models.UsageMetadata{}, "key_kkkk", false))
	// usage rises to 9
	require.NoError(t, svc.RecordUsage(ctx, "s1", "modelM", models.UsageMetadata{TotalTokenCount: 5}, "key_kkkk", false))
	assert.Len(t, sink.Messages(), 1)

	state, _ := store.Load(ctx)
	assert.True(t, state.DailyUsage.IsNotified("key_kkkk", "modelM"))
}

func TestLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults seed an empty state", func(t *testing.T) {
		store := repository.NewMemoryStateStore()
		svc := NewUsageService(store, nil, nil, WithClock((&fixedClock{now: testDay}).Now),
			WithDefaultLimits(map[string]int{"modelX": 50, "modelY": 0}))

		limits, err := svc.Limits(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.DailyLimits{"modelX": 50}, limits)
	})

	t.Run("set and remove", func(t *testing.T) {
		store := seedStore(t, "2026-10-16", models.DailyLimits{"modelX": 5}, nil)
		svc := newTestUsageService(store, nil, nil, &fixedClock{now: testDay})

		require.NoError(t, svc.SetLimit(ctx, "modelY", 20))
		require.NoError(t, svc.SetLimit(ctx, "modelX", 0))

		limits, err := svc.Limits(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.DailyLimits{"modelY": 20}, limits)
	})

	t.Run("persisted limits win over defaults", func(t *testing.T) {
		store := seedStore(t, "2026-10-16", models.DailyLimits{"modelX": 5}, nil)
		svc := NewUsageService(store, nil, nil, WithClock((&fixedClock{now: testDay}).Now),
			WithDefaultLimits(map[string]int{"modelX": 50}))

		limits, err := svc.Limits(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, limits.Limit("modelX"))
	})

	t.Run("invalid input", func(t *testing.T) {
		svc := newTestUsageService(repository.NewMemoryStateStore(), nil, nil, &fixedClock{now: testDay})

		err := svc.SetLimit(ctx, "modelX", -1)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		err = svc.SetLimit(ctx, "", 3)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestDailyUsageIsACopy(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, "2026-10-16", models.DailyLimits{"modelX": 5}, seedCalls("key_ab12", "modelX", 2))
	svc := newTestUsageService(store, nil, nil, &fixedClock{now: testDay})

	snap, err := svc.DailyUsage(ctx)
	require.NoError(t, err)
	snap.Ledger.Apply("key_ab12", "modelX", 1, false)
	snap.Limits["modelX"] = 100

	again, err := svc.DailyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Ledger.CallCount("key_ab12", "modelX"))
	assert.Equal(t, 5, again.Limits.Limit("modelX"))
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, "2026-10-16", models.DailyLimits{"modelX": 5}, seedCalls("key_ab12", "modelX", 3))
	records := &memoryRecords{}
	svc := newTestUsageService(store, records, nil, &fixedClock{now: testDay})
	require.NoError(t, svc.RecordUsage(ctx, "s1", "modelX", models.UsageMetadata{TotalTokenCount: 7}, "key_ab12", false))

	deleted, err := svc.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Empty(t, records.All())

	state, _ := store.Load(ctx)
	assert.Equal(t, "2026-10-16", state.DailyUsage.Date)
	assert.Empty(t, state.DailyUsage.UsageByKey)
	assert.Equal(t, 5, state.DailyLimits.Limit("modelX"))
}

func TestRecordUsageConcurrent(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, "2026-10-16", models.DailyLimits{}, nil)
	records := &memoryRecords{}
	svc := newTestUsageService(store, records, nil, &fixedClock{now: testDay})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.RecordUsage(ctx, "s1", "modelX", models.UsageMetadata{TotalTokenCount: 2}, "key_ab12", false))
		}()
	}
	wg.Wait()

	state, _ := store.Load(ctx)
	assert.Equal(t, 50, state.DailyUsage.CallCount("key_ab12", "modelX"))
	assert.Equal(t, 100, state.DailyUsage.TokenCount("key_ab12", "modelX"))
	assert.Len(t, records.All(), 50)
}
