package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Sampling parameters sent with every completion
const (
	Temperature = 0.7
	MaxTokens   = 4096
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultModel is the chat model used when none is configured
const DefaultModel = "llama-3.2-1b-preview"

var (
	// ErrMissingAPIKey is returned when the provider is built without a credential
	ErrMissingAPIKey = errors.New("llm api key is not set")
	// ErrEmptyResponse is returned when the provider answers without choices
	ErrEmptyResponse = errors.New("no choices returned from provider")
)

// Provider turns one prompt into one completion
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures an OpenAIProvider
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration // zero means no per-call deadline
	HTTPClient *http.Client
}

// OpenAIProvider calls any OpenAI-compatible chat completions API
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIProvider creates a provider; it does not contact the upstream
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: cfg.Timeout,
	}, nil
}

// Model returns the configured model name
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Complete sends prompt as a single user message and returns the first choice's content
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return "", mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

func mapError(err error) error {
	e := &openai.APIError{}
	if !errors.As(err, &e) {
		return fmt.Errorf("chat completion request: %w", err)
	}
	switch {
	case e.HTTPStatusCode == http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: invalid provider API key: %w", err)
	case e.HTTPStatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("rate limited by provider: %w", err)
	case e.HTTPStatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("provider server error: %w", err)
	default:
		return fmt.Errorf("provider API error: %w", err)
	}
}
