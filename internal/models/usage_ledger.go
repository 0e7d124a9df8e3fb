package models

import "time"

const dayLayout = "2006-01-02"

// DayOf returns the UTC calendar day of t as YYYY-MM-DD.
func DayOf(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// KeyUsage holds per-model counters for one API key.
type KeyUsage struct {
	Calls  map[string]int `json:"calls"`
	Tokens map[string]int `json:"tokens"`
}

func newKeyUsage() *KeyUsage {
	return &KeyUsage{Calls: map[string]int{}, Tokens: map[string]int{}}
}

// UsageLedger counts calls and tokens per key and model for a single UTC day.
type UsageLedger struct {
	Date           string                      `json:"date"`
	UsageByKey     map[KeyIdentifier]*KeyUsage `json:"usageByKey"`
	NotifiedLimits map[string]bool             `json:"notifiedLimits"`
}

func NewUsageLedger(date string) *UsageLedger {
	return &UsageLedger{
		Date:           date,
		UsageByKey:     map[KeyIdentifier]*KeyUsage{},
		NotifiedLimits: map[string]bool{},
	}
}

// Reset zeroes every counter and the notified set, and moves the ledger to date.
func (l *UsageLedger) Reset(date string) {
	l.Date = date
	l.UsageByKey = map[KeyIdentifier]*KeyUsage{}
	l.NotifiedLimits = map[string]bool{}
}

// ResetIfStale resets the ledger when it covers a day other than today.
// It reports whether a reset happened.
func (l *UsageLedger) ResetIfStale(today string) bool {
	if l.Date == today {
		return false
	}
	l.Reset(today)
	return true
}

func (l *UsageLedger) CallCount(id KeyIdentifier, model string) int {
	if ku, ok := l.UsageByKey[id]; ok && ku != nil {
		return ku.Calls[model]
	}
	return 0
}

func (l *UsageLedger) TokenCount(id KeyIdentifier, model string) int {
	if ku, ok := l.UsageByKey[id]; ok && ku != nil {
		return ku.Tokens[model]
	}
	return 0
}

// Apply adds one call (when forced or tokens were consumed) and totalTokens to the counters.
func (l *UsageLedger) Apply(id KeyIdentifier, model string, totalTokens int, forceIncrement bool) {
	if l.UsageByKey == nil {
		l.UsageByKey = map[KeyIdentifier]*KeyUsage{}
	}
	ku, ok := l.UsageByKey[id]
	if !ok || ku == nil {
		ku = newKeyUsage()
		l.UsageByKey[id] = ku
	}
	if ku.Calls == nil {
		ku.Calls = map[string]int{}
	}
	if ku.Tokens == nil {
		ku.Tokens = map[string]int{}
	}
	if forceIncrement || totalTokens > 0 {
		ku.Calls[model]++
	}
	ku.Tokens[model] += totalTokens
}

func notifiedKey(id KeyIdentifier, model string) string {
	return string(id) + "-" + model
}

func (l *UsageLedger) IsNotified(id KeyIdentifier, model string) bool {
	return l.NotifiedLimits[notifiedKey(id, model)]
}

func (l *UsageLedger) MarkNotified(id KeyIdentifier, model string) {
	if l.NotifiedLimits == nil {
		l.NotifiedLimits = map[string]bool{}
	}
	l.NotifiedLimits[notifiedKey(id, model)] = true
}

// Clone returns a deep copy safe to hand out of a lock.
func (l *UsageLedger) Clone() *UsageLedger {
	c := NewUsageLedger(l.Date)
	for id, ku := range l.UsageByKey {
		if ku == nil {
			continue
		}
		cp := newKeyUsage()
		for m, n := range ku.Calls {
			cp.Calls[m] = n
		}
		for m, n := range ku.Tokens {
			cp.Tokens[m] = n
		}
		c.UsageByKey[id] = cp
	}
	for k, v := range l.NotifiedLimits {
		c.NotifiedLimits[k] = v
	}
	return c
}

// DailyLimits maps a model to its per-key daily call limit. 0 means unlimited.
type DailyLimits map[string]int

func (d DailyLimits) Limit(model string) int {
	if d == nil {
		return 0
	}
	return d[model]
}

// UsageMetadata is the token accounting returned with a model response.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// PersistedState is the key-value document the ledger lives in.
type PersistedState struct {
	DailyUsage  *UsageLedger `json:"dailyUsage"`
	DailyLimits DailyLimits  `json:"dailyLimits"`
}
