package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/wingman/internal/profile"
)

func TestNewConfigFromProfile(t *testing.T) {
	cfg := NewConfigFromProfile(&profile.Profile{
		AIEnabled: true,
		AIAPIKey:  "key",
		AIBaseURL: "http://llm.local/v1",
		AIModel:   "interviewer-large",
		TTSVoice:  "nova",
	})

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "http://llm.local/v1", cfg.BaseURL)
	assert.Equal(t, "interviewer-large", cfg.ChatModel)
	assert.Equal(t, "nova", cfg.TTSVoice)
	assert.Equal(t, "tts-1", cfg.TTSModel)
	assert.Equal(t, "whisper-1", cfg.STTModel)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromProfile_Disabled(t *testing.T) {
	cfg := NewConfigFromProfile(&profile.Profile{AIAPIKey: "key"})
	assert.False(t, cfg.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "disabled skips checks", cfg: Config{}},
		{name: "missing base url", cfg: Config{Enabled: true, ChatModel: "m"}, wantErr: true},
		{name: "missing model", cfg: Config{Enabled: true, BaseURL: "http://x"}, wantErr: true},
		{name: "negative retries", cfg: Config{Enabled: true, BaseURL: "http://x", ChatModel: "m", MaxRetries: -1}, wantErr: true},
		{name: "valid", cfg: Config{Enabled: true, BaseURL: "http://x", ChatModel: "m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := (&Config{ChatModel: "custom", Timeout: time.Second}).withDefaults()
	assert.Equal(t, "custom", cfg.ChatModel)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 800, cfg.MaxTokens)
}
