package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DispatcherConfig is the file-backed configuration of the model key dispatcher.
type DispatcherConfig struct {
	Keys          KeysConfig           `toml:"keys"`
	Limits        map[string]int       `toml:"limits"`
	Costs         map[string]ModelCost `toml:"costs"`
	Generation    GenerationConfig     `toml:"generation"`
	Notifications NotificationsConfig  `toml:"notifications"`
	Gemini        GeminiConfig         `toml:"gemini"`
}

// KeysConfig lists the API keys in the order they are tried.
type KeysConfig struct {
	Primary   string   `toml:"primary"`
	Fallbacks []string `toml:"fallbacks"`
}

// ModelCost is a price in USD per one million tokens.
type ModelCost struct {
	Input  float64 `toml:"input" json:"input"`
	Output float64 `toml:"output" json:"output"`
}

type GenerationConfig struct {
	Temperature       float64 `toml:"temperature"`
	TopP              float64 `toml:"top_p"`
	HistoryTokenLimit int     `toml:"history_token_limit"`
}

type NotificationsConfig struct {
	Enabled  bool `toml:"enabled"`
	FeedSize int  `toml:"feed_size"`
}

type GeminiConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Limits: map[string]int{},
		Costs: map[string]ModelCost{
			"gemini-1.5-pro-latest":   {Input: 3.50, Output: 10.50},
			"gemini-1.5-flash-latest": {Input: 0.35, Output: 1.05},
			"gemini-1.0-pro":          {Input: 0.50, Output: 1.50},
		},
		Generation: GenerationConfig{
			Temperature: 1.0,
			TopP:        0.9,
		},
		Notifications: NotificationsConfig{
			Enabled:  true,
			FeedSize: 50,
		},
		Gemini: GeminiConfig{
			BaseURL:        "https://generativelanguage.googleapis.com",
			TimeoutSeconds: 120,
		},
	}
}

// LoadDispatcherConfig reads path over the defaults. A missing file yields the defaults.
func LoadDispatcherConfig(path string) (DispatcherConfig, error) {
	cfg := DefaultDispatcherConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode dispatcher config %s: %w", path, err)
	}
	if cfg.Limits == nil {
		cfg.Limits = map[string]int{}
	}
	return cfg, nil
}

// ApplyEnv overrides keys and the upstream URL from the environment.
func (c *DispatcherConfig) ApplyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Keys.Primary = v
	}
	if v := os.Getenv("GEMINI_FALLBACK_API_KEYS"); v != "" {
		c.Keys.Fallbacks = splitList(v)
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		c.Gemini.BaseURL = v
	}
}

func (c DispatcherConfig) Validate() error {
	if strings.TrimSpace(c.Keys.Primary) == "" && len(splitList(strings.Join(c.Keys.Fallbacks, ","))) == 0 {
		return fmt.Errorf("no API key configured: set GEMINI_API_KEY or [keys] in the dispatcher config")
	}
	for model, limit := range c.Limits {
		if limit < 0 {
			return fmt.Errorf("daily limit for %s must not be negative", model)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
