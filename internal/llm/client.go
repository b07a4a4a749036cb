// Package llm provides a client for an OpenAI-compatible chat completions
// API, plus the research prompts built on top of it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchmate/research-service/internal/observability"
)

// Default values for the client.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 2 * time.Second
)

// Config holds the parameters needed to create a client.
type Config struct {
	// APIKey authenticates against the provider.
	APIKey string
	// BaseURL is the OpenAI-compatible API base URL (empty means Groq).
	BaseURL string
	// Model is the chat model identifier.
	Model string
	// EmbeddingModel is the model used by Embed.
	EmbeddingModel string
	// MaxTokens is the default completion budget when a call passes zero.
	MaxTokens int
	// Temperature is the sampling temperature.
	Temperature float64
	// Timeout bounds each API call.
	Timeout time.Duration
	// MaxRetries is the retry budget for transient failures.
	MaxRetries int
	// RetryDelay is the base delay between retries; the wait grows linearly
	// with the attempt number.
	RetryDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
}

// chatMessage is a single message in the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the chat completions response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// embeddingRequest is the embeddings request body.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse is the embeddings response body.
type embeddingResponse struct {
	Data []embeddingData `json:"data"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// errorResponse is the provider's error envelope.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Client talks to an OpenAI-compatible completions and embeddings API.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// New creates a client with its own HTTP client. metrics may be nil.
func New(cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()
	return NewWithHTTPClient(cfg, &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}, logger, metrics)
}

// NewWithHTTPClient creates a client with a caller-supplied HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *http.Client, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()
	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger.With().Str("component", "llm").Logger(),
		metrics:    metrics,
	}
}

// Model returns the configured chat model identifier.
func (c *Client) Model() string {
	return c.config.Model
}

// Generate sends the prompt as a single user message and returns the model's
// reply. A maxTokens of zero uses the configured default. Transient provider
// errors are retried with linearly growing delays.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return c.generate(ctx, "generate", prompt, maxTokens)
}

func (c *Client) generate(ctx context.Context, operation, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	req := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   maxTokens,
		TopP:        DefaultTopP,
	}

	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("llm: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		content, err := c.doChatRequest(ctx, req)
		if err == nil {
			if c.metrics != nil {
				c.metrics.RecordLLMRequest(operation, c.config.Model, time.Since(start).Seconds())
			}
			return content, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsTransient() {
			c.recordFailure(operation, err)
			return "", err
		}
		lastErr = err
	}

	c.recordFailure(operation, lastErr)
	return "", fmt.Errorf("llm: exhausted %d retries: %w", c.config.MaxRetries, lastErr)
}

func (c *Client) recordFailure(operation string, err error) {
	reason := "request"
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		reason = fmt.Sprintf("status_%d", apiErr.StatusCode)
	}
	if c.metrics != nil {
		c.metrics.RecordLLMRequestFailed(operation, c.config.Model, reason)
	}
	c.logger.Warn().Err(err).Str("operation", operation).Msg("llm request failed")
}

// doChatRequest performs a single chat completions call.
func (c *Client) doChatRequest(ctx context.Context, chatReq chatRequest) (string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("llm: failed to marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("llm: failed to unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Embed returns one embedding vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{
		Model: c.config.EmbeddingModel,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: failed to marshal embedding request: %w", err)
	}

	respBody, err := c.post(ctx, "/embeddings", body)
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("llm: failed to unmarshal embedding response: %w", err)
	}
	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("llm: expected %d embeddings, got %d", len(texts), len(embResp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range embResp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("llm: embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// post sends a JSON body to the given API path and returns the raw response
// body, mapping non-200 statuses to APIError.
func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// parseAPIError builds an APIError from the response status code and body.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}
