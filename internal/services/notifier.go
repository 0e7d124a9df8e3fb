package services

import (
	"assistant-api/internal/logger"
	"assistant-api/internal/models"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// NotificationSink receives user-facing warning messages.
type NotificationSink interface {
	Notify(message string)
}

// ThresholdNotifier warns once per key, model and day when usage enters [80% of limit, limit).
type ThresholdNotifier struct {
	sink NotificationSink
}

func NewThresholdNotifier(sink NotificationSink) *ThresholdNotifier {
	return &ThresholdNotifier{sink: sink}
}

// CheckAndNotify marks the pair in ledger when it fires and reports whether it did.
func (n *ThresholdNotifier) CheckAndNotify(ledger *models.UsageLedger, limits models.DailyLimits, model string, id models.KeyIdentifier) bool {
	limit := limits.Limit(model)
	if limit == 0 {
		return false
	}
	current := ledger.CallCount(id, model)
	threshold := limit * 8 / 10
	if current < threshold || current >= limit {
		return false
	}
	if ledger.IsNotified(id, model) {
		return false
	}
	if n.sink != nil {
		n.sink.Notify(fmt.Sprintf("Warning: %d of the %d daily calls for model %s have been used (%s).", current, limit, model, id))
	}
	ledger.MarkNotified(id, model)
	notificationsTotal.Inc()
	return true
}

type LogSink struct{}

func (LogSink) Notify(message string) {
	logger.LogEvent(logrus.WarnLevel, "Usage threshold reached", logrus.Fields{"notification": message})
}

// MultiSink fans a message out to every sink.
type MultiSink []NotificationSink

func (m MultiSink) Notify(message string) {
	for _, s := range m {
		s.Notify(message)
	}
}

type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationFeed keeps the most recent notifications for clients to poll.
type NotificationFeed struct {
	mu     sync.Mutex
	items  []Notification
	size   int
	nextID int64
}

func NewNotificationFeed(size int) *NotificationFeed {
	if size <= 0 {
		size = 50
	}
	return &NotificationFeed{size: size, nextID: 1}
}

func (f *NotificationFeed) Notify(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, Notification{ID: f.nextID, Message: message, CreatedAt: time.Now()})
	f.nextID++
	if len(f.items) > f.size {
		f.items = f.items[len(f.items)-f.size:]
	}
}

// Since returns notifications with an ID greater than after, oldest first.
func (f *NotificationFeed) Since(after int64) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Notification, 0)
	for _, n := range f.items {
		if n.ID > after {
			out = append(out, n)
		}
	}
	return out
}
