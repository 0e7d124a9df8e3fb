package api

import (
	"assistant-api/internal/api/handlers"
	"assistant-api/internal/config"
	"assistant-api/internal/gemini"
	"assistant-api/internal/middleware"
	"assistant-api/internal/models"
	"assistant-api/internal/repository"
	"assistant-api/internal/services"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type staticInvoker struct {
	calls int
}

func (s *staticInvoker) GenerateContent(ctx context.Context, apiKey string, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	s.calls++
	return &gemini.GenerateResponse{
		Text:  "pong",
		Usage: models.UsageMetadata{PromptTokenCount: 100, CandidatesTokenCount: 20, TotalTokenCount: 120},
	}, nil
}

func (s *staticInvoker) ListModels(ctx context.Context, apiKey string) ([]gemini.Model, error) {
	return nil, nil
}

func (s *staticInvoker) ValidateKey(ctx context.Context, apiKey string) error {
	return nil
}

type testServer struct {
	router  http.Handler
	mock    sqlmock.Sqlmock
	invoker *staticInvoker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	store := repository.NewRedisStateStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "assistant:state")

	records := repository.NewUsageRecordRepository(gdb)
	feed := services.NewNotificationFeed(10)
	usage := services.NewUsageService(store, records, services.NewThresholdNotifier(feed))
	inv := &staticInvoker{}
	dispatcher := services.NewDispatcher(inv, usage, "secret_ab12", nil)
	chat := services.NewChatService(dispatcher, nil, config.GenerationConfig{Temperature: 1, TopP: 0.9})
	guard := middleware.NewSessionGuard()

	router := SetupRoutes(gdb, store, Handlers{
		Chat:          handlers.NewChatHandler(chat, guard),
		Usage:         handlers.NewUsageHandler(usage, services.NewUsageReportService(records, nil)),
		Settings:      handlers.NewSettingsHandler(usage),
		Notifications: handlers.NewNotificationHandler(feed),
		Models:        handlers.NewModelHandler(inv, "secret_ab12"),
		RequestLogs:   handlers.NewRequestLogHandler(services.NewRequestLogService(repository.NewRequestLogRepository(gdb))),
		Guard:         guard,
	})
	return &testServer{router: router, mock: mock, invoker: inv}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	s.router.ServeHTTP(rec, req)
	return rec
}

const chatBody = `{"model": "modelX", "history": [{"role": "user", "parts": [{"type": "text", "text": "ping"}]}]}`

func TestChatUntilDailyLimit(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPut, "/api/settings/limits/modelX", `{"limit": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO "usage_records"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.mock.ExpectCommit()

	rec = s.do(http.MethodPost, "/api/sessions/s1/chat", chatBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	var reply services.ChatReply
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	assert.Equal(t, "pong", reply.Reply.Text)
	assert.Equal(t, models.KeyIdentifier("key_ab12"), reply.UsedKey)

	rec = s.do(http.MethodGet, "/api/usage/daily", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var daily struct {
		DailyUsage  models.UsageLedger `json:"dailyUsage"`
		DailyLimits models.DailyLimits `json:"dailyLimits"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&daily))
	assert.Equal(t, 1, daily.DailyUsage.CallCount("key_ab12", "modelX"))
	assert.Equal(t, 120, daily.DailyUsage.TokenCount("key_ab12", "modelX"))
	assert.Equal(t, 1, daily.DailyLimits.Limit("modelX"))

	rec = s.do(http.MethodPost, "/api/sessions/s1/chat", chatBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "QUOTA_EXHAUSTED")
	assert.Equal(t, 1, s.invoker.calls)

	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestUsageReportRoute(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectQuery(`SELECT \* FROM "usage_records" WHERE model = \$1 ORDER BY timestamp desc`).
		WithArgs("modelX").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "model", "prompt_tokens", "output_tokens", "total_tokens"}).
			AddRow(1, "s1", "modelX", 100, 20, 120))

	rec := s.do(http.MethodGet, "/api/usage/report?range=all&model=modelX", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report services.UsageReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, 1, report.TotalCalls)
	assert.Equal(t, 120, report.TotalTokens)

	rec = s.do(http.MethodGet, "/api/usage/report?range=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectPing()

	rec := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"status": "API is running",
		"database": "Database connection is healthy",
		"external_services": {"State store": "Available"}
	}`, rec.Body.String())

	s.do(http.MethodPost, "/api/sessions/s2/chat", `{"model": "modelY", "history": [{"role": "user", "parts": [{"type": "text", "text": "x"}]}]}`)

	rec = s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "assistant_dispatch_attempts_total")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/unknown", "").Code)
}
