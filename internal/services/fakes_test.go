package services

import (
	"assistant-api/internal/gemini"
	"assistant-api/internal/models"
	"context"
	"sort"
	"sync"
	"time"
)

type invokeFunc func(ctx context.Context, apiKey string) (*gemini.GenerateResponse, error)

type fakeInvoker struct {
	mu    sync.Mutex
	calls []string
	fn    invokeFunc
}

func (f *fakeInvoker) GenerateContent(ctx context.Context, apiKey string, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, apiKey)
	f.mu.Unlock()
	return f.fn(ctx, apiKey)
}

func (f *fakeInvoker) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func replyWith(text string, prompt, output int) *gemini.GenerateResponse {
	return &gemini.GenerateResponse{
		Text: text,
		Usage: models.UsageMetadata{
			PromptTokenCount:     prompt,
			CandidatesTokenCount: output,
			TotalTokenCount:      prompt + output,
		},
	}
}

type memoryRecords struct {
	mu      sync.Mutex
	records []models.UsageRecord
	err     error
}

func (m *memoryRecords) Create(ctx context.Context, record *models.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	record.ID = uint(len(m.records) + 1)
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryRecords) List(ctx context.Context, filter models.UsageRecordFilter) ([]models.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UsageRecord
	for _, r := range m.records {
		if !filter.From.IsZero() && r.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && r.Timestamp.After(filter.To) {
			continue
		}
		if filter.Model != "" && r.Model != filter.Model {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *memoryRecords) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.records))
	m.records = nil
	return n, nil
}

func (m *memoryRecords) All() []models.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.UsageRecord(nil), m.records...)
}

type captureSink struct {
	mu       sync.Mutex
	messages []string
}

func (c *captureSink) Notify(message string) {
	c.mu.Lock()
	c.messages = append(c.messages, message)
	c.mu.Unlock()
}

func (c *captureSink) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}

type memoryRequestLogs struct {
	mu   sync.Mutex
	logs []models.RequestLog
}

func (m *memoryRequestLogs) Create(ctx context.Context, log *models.RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memoryRequestLogs) GetSessionLogs(ctx context.Context, sessionID string, from, to time.Time) ([]models.RequestLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RequestLog
	for _, l := range m.logs {
		if l.SessionID == sessionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryRequestLogs) GetRecent(ctx context.Context, limit int) ([]models.RequestLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.logs) {
		limit = len(m.logs)
	}
	return append([]models.RequestLog(nil), m.logs[len(m.logs)-limit:]...), nil
}

// fixedClock returns a settable clock for tests that move across days.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
