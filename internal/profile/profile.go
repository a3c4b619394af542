package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start wingman.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for the results API
	Addr string
	// Port is the binding port for the results API
	Port int
	// Data is the data directory
	Data string
	// DSN points to where wingman stores analysis results and transcripts
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of wingman
	Version string

	// AI Configuration
	AIEnabled bool   // WINGMAN_AI_ENABLED
	AIAPIKey  string // WINGMAN_AI_API_KEY
	AIBaseURL string // WINGMAN_AI_BASE_URL (default: https://api.openai.com/v1)
	AIModel   string // WINGMAN_AI_MODEL (default: gpt-4o-mini)
	TTSModel  string // WINGMAN_TTS_MODEL (default: tts-1)
	TTSVoice  string // WINGMAN_TTS_VOICE (default: alloy)
	STTModel  string // WINGMAN_STT_MODEL (default: whisper-1)

	// SpeechURL is an optional speech service that replaces the AI provider for STT/TTS.
	SpeechURL string // WINGMAN_SPEECH_URL

	// Storage and analysis
	StorageBackend string // WINGMAN_STORAGE_BACKEND (http or local, default: local)
	UploadURL      string // WINGMAN_UPLOAD_URL
	AnalysisURL    string // WINGMAN_ANALYSIS_URL
	ResultsURL     string // WINGMAN_RESULTS_URL (default: http://localhost:8081)

	// Polling
	PollInterval time.Duration // WINGMAN_POLL_INTERVAL (default: 10s)
	GraceWindow  time.Duration // WINGMAN_GRACE_WINDOW (default: 30s)
	HardTimeout  time.Duration // WINGMAN_HARD_TIMEOUT (default: 600s)

	// APIKey guards the results API and is sent to the upload, analysis and results services.
	APIKey string // WINGMAN_API_KEY

	// RetentionDays is how long analysis results and transcripts are kept. 0 disables cleanup.
	RetentionDays int // WINGMAN_RETENTION_DAYS (default: 30)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key or base URL is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIAPIKey != "" || p.AIBaseURL != "")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

// FromEnv loads configuration from WINGMAN_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("WINGMAN_AI_ENABLED") == "true"
	p.AIAPIKey = os.Getenv("WINGMAN_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("WINGMAN_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIModel = getEnvOrDefault("WINGMAN_AI_MODEL", "gpt-4o-mini")
	p.TTSModel = getEnvOrDefault("WINGMAN_TTS_MODEL", "tts-1")
	p.TTSVoice = getEnvOrDefault("WINGMAN_TTS_VOICE", "alloy")
	p.STTModel = getEnvOrDefault("WINGMAN_STT_MODEL", "whisper-1")
	p.SpeechURL = os.Getenv("WINGMAN_SPEECH_URL")

	p.StorageBackend = getEnvOrDefault("WINGMAN_STORAGE_BACKEND", "local")
	p.UploadURL = os.Getenv("WINGMAN_UPLOAD_URL")
	p.AnalysisURL = os.Getenv("WINGMAN_ANALYSIS_URL")
	p.ResultsURL = getEnvOrDefault("WINGMAN_RESULTS_URL", "http://localhost:8081")

	p.PollInterval = getDurationEnvOrDefault("WINGMAN_POLL_INTERVAL", 10*time.Second)
	p.GraceWindow = getDurationEnvOrDefault("WINGMAN_GRACE_WINDOW", 30*time.Second)
	p.HardTimeout = getDurationEnvOrDefault("WINGMAN_HARD_TIMEOUT", 600*time.Second)
	p.APIKey = os.Getenv("WINGMAN_API_KEY")
	p.RetentionDays = getIntEnvOrDefault("WINGMAN_RETENTION_DAYS", 30)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.StorageBackend != "local" && p.StorageBackend != "http" {
		return errors.Errorf("unsupported storage backend %q", p.StorageBackend)
	}
	if p.StorageBackend == "http" && p.UploadURL == "" {
		return errors.New("upload url is required for the http storage backend")
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "wingman")
		} else {
			p.Data = "/var/opt/wingman"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}
	if _, err := os.Stat(p.Data); os.IsNotExist(err) {
		if err := os.MkdirAll(p.Data, 0770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("wingman_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
