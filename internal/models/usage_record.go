package models

import "time"

// UsageRecord is an append-only entry for a call that consumed tokens.
type UsageRecord struct {
	ID           uint      `gorm:"primarykey" json:"-"`
	SessionID    string    `gorm:"index" json:"sessionId"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
	Model        string    `gorm:"index" json:"model"`
	PromptTokens int       `json:"promptTokens"`
	OutputTokens int       `json:"outputTokens"`
	TotalTokens  int       `json:"totalTokens"`
}

// UsageRecordFilter narrows a usage record query. Zero fields do not filter.
type UsageRecordFilter struct {
	From  time.Time
	To    time.Time
	Model string
}
