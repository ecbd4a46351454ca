// Package llm talks to the OpenAI HTTP API for script generation and speech transcription.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL            = "https://api.openai.com"
	DefaultModel              = "gpt-3.5-turbo"
	DefaultMaxTokens          = 400
	DefaultTranscriptionModel = "whisper-1"

	defaultMaxRetries  = 2
	defaultBaseBackoff = 1 * time.Second
	defaultRateLimit   = 50.0 / 60.0
	defaultBurst       = 3
)

// Roles used in chat messages
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat completion message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config configures the OpenAI client
type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	MaxTokens          int
	TranscriptionModel string
	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

// Client implements chat completion and transcription against the OpenAI API.
type Client struct {
	apiKey             string
	baseURL            string
	model              string
	maxTokens          int
	transcriptionModel string
	httpClient         *http.Client
	limiter            *rate.Limiter
	maxRetries         int
	backoff            time.Duration
	logger             *zap.Logger
}

// NewClient creates a new OpenAI client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key required")
	}

	c := &Client{
		apiKey:             cfg.APIKey,
		baseURL:            cfg.BaseURL,
		model:              cfg.Model,
		maxTokens:          cfg.MaxTokens,
		transcriptionModel: cfg.TranscriptionModel,
		httpClient:         &http.Client{Timeout: cfg.Timeout},
		limiter:            rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries:         cfg.MaxRetries,
		backoff:            defaultBaseBackoff,
		logger:             cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.transcriptionModel == "" {
		c.transcriptionModel = DefaultTranscriptionModel
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Complete sends the messages to the chat completions endpoint and returns the
// content of the first choice.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	req := chatRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var content string
	err = c.withRetry(ctx, "complete", func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		respBody, err := c.do(httpReq)
		if err != nil {
			return err
		}

		var resp chatResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty response from API")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	return content, err
}

// Transcribe uploads an audio clip and returns the recognised text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio to transcribe")
	}

	var text string
	err := c.withRetry(ctx, "transcribe", func() error {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField("model", c.transcriptionModel); err != nil {
			return err
		}
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			return err
		}
		if _, err := part.Write(audio); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &buf)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", w.FormDataContentType())

		respBody, err := c.do(httpReq)
		if err != nil {
			return err
		}

		var resp transcriptionResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		text = resp.Text
		return nil
	})
	return text, err
}

// withRetry runs op with rate limiting and exponential backoff on retryable errors.
func (c *Client) withRetry(ctx context.Context, name string, op func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying openai request",
				zap.String("op", name),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// do performs an authenticated request and returns the body of a 200 response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return nil, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
