package repository

import (
	"assistant-api/internal/config"
	"assistant-api/internal/models"
	apperrors "assistant-api/internal/pkg/errors"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// StateStore loads and saves the persisted assistant state as one document.
type StateStore interface {
	Load(ctx context.Context) (*models.PersistedState, error)
	Save(ctx context.Context, state *models.PersistedState) error
}

type RedisStateStore struct {
	client *redis.Client
	key    string
}

func NewRedisStateStore(cfg *config.CacheConfig) (*RedisStateStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return NewRedisStateStoreWithClient(client, cfg.StateKey), nil
}

func NewRedisStateStoreWithClient(client *redis.Client, key string) *RedisStateStore {
	return &RedisStateStore{client: client, key: key}
}

func (s *RedisStateStore) Load(ctx context.Context) (*models.PersistedState, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &models.PersistedState{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("%w: %v", apperrors.ErrCacheError, err), "failed to load state")
	}

	var state models.PersistedState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode state")
	}
	return &state, nil
}

func (s *RedisStateStore) Save(ctx context.Context, state *models.PersistedState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %v", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return apperrors.Wrap(fmt.Errorf("%w: %v", apperrors.ErrCacheError, err), "failed to save state")
	}
	return nil
}

func (s *RedisStateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MemoryStateStore keeps the state as serialized JSON in process.
type MemoryStateStore struct {
	mu  sync.Mutex
	raw []byte
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

func (s *MemoryStateStore) Load(ctx context.Context) (*models.PersistedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := &models.PersistedState{}
	if s.raw == nil {
		return state, nil
	}
	if err := json.Unmarshal(s.raw, state); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode state")
	}
	return state, nil
}

func (s *MemoryStateStore) Save(ctx context.Context, state *models.PersistedState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %v", err)
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}
