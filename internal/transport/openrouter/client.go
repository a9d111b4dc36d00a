// Package openrouter is the chat-completion client for any
// OpenAI-compatible endpoint (OpenRouter by default).
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/metrics"
)

// Client calls the chat-completion API.
type Client struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the chat upstream settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewClient creates an OpenAI-compatible chat client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Complete implements chat.Upstream. Returns the first completion's
// message text; no retries are attempted here.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		return "", parseAPIError(err)
	}

	metrics.ChatUpstreamDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices: %w", domain.ErrInvalidUpstreamResponse)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("completion message is empty: %w", domain.ErrInvalidUpstreamResponse)
	}
	return reply, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable cause from the API response.
// Every transport-level failure, including timeouts and non-2xx
// statuses, wraps domain.ErrUpstream so callers can classify it.
func parseAPIError(err error) error {
	wrap := domain.ErrUpstream

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("chat request timed out: %w", wrap)
	}

	return fmt.Errorf("chat request failed: %v: %w", err, wrap)
}
