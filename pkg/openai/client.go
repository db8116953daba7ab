// Package openai is a minimal chat-completions client for OpenAI-compatible
// endpoints, with the bounded retry/backoff policy the pipeline relies on.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nhigh-tools/deadline-cli/internal/resilience"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultTemperature = 0.2
)

// Client performs chat completions against an OpenAI-compatible API.
type Client interface {
	// Complete sends a single-message user prompt and returns the trimmed
	// text of the first choice.
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// ChatCompletionRequest is the request body for POST /chat/completions.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the response from POST /chat/completions.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice is a single completion choice.
type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryConfig overrides the retry policy. Tests use this to shrink the
// backoff schedule or inject a recording sleep.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// DefaultRetryConfig is the production retry policy: six attempts total with
// backoff 1s, 2s, 4s, 8s, 16s between them. Rate limits, transport failures
// and other non-2xx responses all follow this schedule; a structurally
// invalid 200 aborts immediately.
func DefaultRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    6,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     16 * time.Second,
		Multiplier:     2.0,
		OnRetry:        resilience.RetryLogger("openai", "chat_completion"),
	}
}

// NewClient creates an OpenAI API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	req := ChatCompletionRequest{
		Model:       model,
		Temperature: defaultTemperature,
		Messages:    []Message{{Role: "user", Content: prompt}},
	}
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (string, error) {
		return c.completeOnce(ctx, req)
	})
}

func (c *httpClient) completeOnce(ctx context.Context, req ChatCompletionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", resilience.NewPermanentError(eris.Wrap(err, "openai: marshal request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", resilience.NewPermanentError(eris.Wrap(err, "openai: create request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "openai: send request"), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "openai: read response"), 0)
	}

	if resp.StatusCode != http.StatusOK {
		return "", resilience.NewTransientError(
			eris.Errorf("openai: status %d: %s", resp.StatusCode, string(respBody)),
			resp.StatusCode,
		)
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", resilience.NewPermanentError(eris.Wrap(err, "openai: unmarshal response"))
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", resilience.NewPermanentError(eris.New("openai: response missing message content"))
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
