package models

import "time"

type RequestStatus string

const (
	StatusSuccess        RequestStatus = "SUCCESS"
	StatusError          RequestStatus = "ERROR"
	StatusCancelled      RequestStatus = "CANCELLED"
	StatusQuotaExhausted RequestStatus = "QUOTA_EXHAUSTED"
)

// RequestLog is one audit row per chat request handled by the dispatcher.
// Attempts maps each tried key identifier to its outcome.
type RequestLog struct {
	ID           uint          `gorm:"primarykey" json:"id"`
	RequestID    string        `gorm:"index" json:"request_id"`
	SessionID    string        `gorm:"index" json:"session_id"`
	Model        string        `gorm:"index" json:"model"`
	Status       RequestStatus `json:"status"`
	UsedKey      KeyIdentifier `json:"used_key,omitempty"`
	Attempts     JSON          `gorm:"type:jsonb" json:"attempts"`
	TotalTokens  int           `json:"total_tokens"`
	LatencyMs    int64         `json:"latency_ms"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Timestamp    time.Time     `gorm:"index" json:"timestamp"`
	CreatedAt    time.Time     `json:"-"`
}
