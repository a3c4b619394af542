package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Provider serves the interviewer, feedback, speech synthesis and transcription
// collaborators from one OpenAI-compatible client.
type Provider struct {
	client    *openai.Client
	config    *Config
	logger    *slog.Logger
	retryBase time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithHTTPClient replaces the HTTP client of the underlying API client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		clientConfig := openai.DefaultConfig(p.config.APIKey)
		clientConfig.BaseURL = p.config.BaseURL
		clientConfig.HTTPClient = c
		p.client = openai.NewClientWithConfig(clientConfig)
	}
}

// NewProvider creates a new AI provider.
func NewProvider(cfg *Config, opts ...Option) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return nil, errors.New("AI base URL is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	cfg.BaseURL = clientConfig.BaseURL

	p := &Provider{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		logger:    slog.Default(),
		retryBase: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Chat performs a chat completion.
func (p *Provider) Chat(ctx context.Context, messages []Message) (string, error) {
	var result string
	err := p.doWithRetry(ctx, func() error {
		llmMessages := make([]openai.ChatCompletionMessage, len(messages))
		for i, msg := range messages {
			llmMessages[i] = openai.ChatCompletionMessage{
				Role:    msg.Role,
				Content: msg.Content,
			}
		}

		req := openai.ChatCompletionRequest{
			Model:       p.config.ChatModel,
			Messages:    llmMessages,
			MaxTokens:   p.config.MaxTokens,
			Temperature: p.config.Temperature,
		}

		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to complete chat")
	}
	return result, nil
}

// doWithRetry executes fn with exponential backoff. Client errors other than 429 are not retried.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == p.config.MaxRetries-1 {
			break
		}
		waitTime := p.retryBase << attempt
		p.logger.Debug("AI request failed, retrying",
			"attempt", attempt+1,
			"wait_time", waitTime,
			"error", err)
		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == 0 {
		return true
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
