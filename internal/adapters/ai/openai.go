// Package ai talks to OpenAI-compatible chat completion endpoints.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/config"
	"github.com/doloop/core/internal/ports"
)

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultModel        = "gpt-4o-mini"
	defaultMaxRetries   = 3
	defaultInitialDelay = 1 * time.Second
)

// OpenAIClient implements ports.Suggester over /chat/completions
type OpenAIClient struct {
	apiKey       string
	baseURL      string
	model        string
	maxRetries   uint64
	initialDelay time.Duration
	client       *http.Client
}

// Option configures an OpenAIClient
type Option func(*OpenAIClient)

// WithBaseURL points the client at another OpenAI-compatible server
func WithBaseURL(url string) Option {
	return func(c *OpenAIClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithModel selects the chat model
func WithModel(model string) Option {
	return func(c *OpenAIClient) { c.model = model }
}

// WithHTTPClient replaces the underlying http client
func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenAIClient) { c.client = client }
}

// WithRetry sets the retry budget and the first backoff delay
func WithRetry(maxRetries uint64, initialDelay time.Duration) Option {
	return func(c *OpenAIClient) {
		c.maxRetries = maxRetries
		c.initialDelay = initialDelay
	}
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey string, opts ...Option) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		model:        defaultModel,
		maxRetries:   defaultMaxRetries,
		initialDelay: defaultInitialDelay,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New builds the suggester selected by the configuration
func New(cfg config.AIConfig) ports.Suggester {
	switch cfg.Provider {
	case "openai":
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		opts := []Option{WithHTTPClient(&http.Client{Timeout: timeout})}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		return NewOpenAIClient(cfg.APIKey, opts...)
	default:
		return Disabled{}
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type openaiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateLoop asks for a loop skeleton matching the user's description
func (c *OpenAIClient) GenerateLoop(ctx context.Context, req ports.GenerateLoopRequest) (*ports.LoopSkeleton, error) {
	prompt := fmt.Sprintf("Create a checklist loop for: %s", req.Prompt)
	if req.Category != "" {
		prompt += fmt.Sprintf("\nCategory: %s", req.Category)
	}

	var skeleton ports.LoopSkeleton
	if err := c.complete(ctx, generateLoopSystemPrompt, prompt, &skeleton); err != nil {
		return nil, err
	}
	return &skeleton, nil
}

// SuggestTasks asks for tasks that are missing from the loop
func (c *OpenAIClient) SuggestTasks(ctx context.Context, snapshot ports.LoopSnapshot) ([]ports.SuggestedTask, error) {
	prompt, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal loop: %w", err)
	}

	var out struct {
		Tasks []ports.SuggestedTask `json:"tasks"`
	}
	if err := c.complete(ctx, suggestTasksSystemPrompt, string(prompt), &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// Optimize asks for advice on structuring the loop
func (c *OpenAIClient) Optimize(ctx context.Context, snapshot ports.LoopSnapshot) (*ports.Optimization, error) {
	prompt, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal loop: %w", err)
	}

	var out ports.Optimization
	if err := c.complete(ctx, optimizeSystemPrompt, string(prompt), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// complete sends one chat request and decodes the JSON object in the reply
// into dest. Rate limits and server errors are retried with exponential
// backoff.
func (c *OpenAIClient) complete(ctx context.Context, system, user string, dest interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("api key not set: %w", entities.ErrSuggestionsUnavailable)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0.7,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var content string
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.initialDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("HTTP request failed: %w", err))
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to read response body: %w", err))
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := fmt.Errorf("provider error (%d): %s", resp.StatusCode, errorMessage(respBody))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		var chat chatResponse
		if err := json.Unmarshal(respBody, &chat); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if len(chat.Choices) == 0 {
			return errors.New("provider returned no choices")
		}
		content = chat.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return fmt.Errorf("%v: %w", err, entities.ErrSuggestionsUnavailable)
	}

	if err := json.Unmarshal([]byte(extractJSON(content)), dest); err != nil {
		return fmt.Errorf("provider returned malformed JSON: %v: %w", err, entities.ErrSuggestionsUnavailable)
	}
	return nil
}

func errorMessage(body []byte) string {
	var apiErr openaiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return string(body)
}

// extractJSON strips markdown fences some models wrap around JSON replies
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return s
}
