// Package ai talks to an OpenAI-compatible API for the interviewer, feedback, speech synthesis
// and transcription.
package ai

import (
	"errors"
	"time"

	"github.com/hrygo/wingman/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	BaseURL string
	APIKey  string

	ChatModel   string  // gpt-4o-mini
	MaxTokens   int     // default: 800
	Temperature float32 // default: 0.5

	TTSModel string // tts-1
	TTSVoice string // alloy
	STTModel string // whisper-1

	MaxRetries int           // default: 3
	Timeout    time.Duration // per request, default: 30s
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		ChatModel:   "gpt-4o-mini",
		MaxTokens:   800,
		Temperature: 0.5,
		TTSModel:    "tts-1",
		TTSVoice:    "alloy",
		STTModel:    "whisper-1",
		MaxRetries:  3,
		Timeout:     30 * time.Second,
	}
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := DefaultConfig()
	cfg.Enabled = p.IsAIEnabled()
	cfg.APIKey = p.AIAPIKey
	if p.AIBaseURL != "" {
		cfg.BaseURL = p.AIBaseURL
	}
	if p.AIModel != "" {
		cfg.ChatModel = p.AIModel
	}
	if p.TTSModel != "" {
		cfg.TTSModel = p.TTSModel
	}
	if p.TTSVoice != "" {
		cfg.TTSVoice = p.TTSVoice
	}
	if p.STTModel != "" {
		cfg.STTModel = p.STTModel
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BaseURL == "" {
		return errors.New("AI base URL is required")
	}
	if c.ChatModel == "" {
		return errors.New("chat model is required")
	}
	if c.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}
	return nil
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	out := *c
	if out.ChatModel == "" {
		out.ChatModel = d.ChatModel
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = d.MaxTokens
	}
	if out.Temperature <= 0 {
		out.Temperature = d.Temperature
	}
	if out.TTSModel == "" {
		out.TTSModel = d.TTSModel
	}
	if out.TTSVoice == "" {
		out.TTSVoice = d.TTSVoice
	}
	if out.STTModel == "" {
		out.STTModel = d.STTModel
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = d.MaxRetries
	}
	if out.Timeout <= 0 {
		out.Timeout = d.Timeout
	}
	return &out
}
