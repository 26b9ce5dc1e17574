// Package llm provides the completion client behind session summaries.
//
// It speaks the Anthropic Messages API directly: one non-streaming POST
// per completion, no tools, no retries. The service layer decides when a
// completion is worth asking for.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the Anthropic API base URL.
	DefaultEndpoint = "https://api.anthropic.com"
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-0"
	// DefaultMaxTokens bounds completion length when unconfigured.
	DefaultMaxTokens = 256

	apiVersion     = "2023-06-01"
	requestTimeout = 60 * time.Second
)

// APIError is a non-2xx response from the API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Type is the API error type string
	// (e.g., "invalid_request_error", "rate_limit_error").
	Type string

	// Message is the human-readable error description.
	Message string
}

func (err *APIError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
}

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	// APIKey authenticates requests. Required.
	APIKey string
	// Endpoint overrides DefaultEndpoint, mostly for tests.
	Endpoint string
	// Model selects the completion model.
	Model string
	// MaxTokens bounds the completion length.
	MaxTokens int
	// HTTPClient overrides the default 60s-timeout client.
	HTTPClient *http.Client
}

// Client calls the Messages API. It satisfies the service layer's
// Summarizer interface.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// New creates a Client.
//
// Returns:
//   - *Client: the configured client
//   - error: if the API key is missing
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}

	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		apiKey:     opts.APIKey,
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		model:      opts.Model,
		maxTokens:  opts.MaxTokens,
		httpClient: opts.HTTPClient,
	}, nil
}

// Complete sends one user prompt and returns the completion text, with
// all text content blocks joined.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	wireRequest := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	}

	body, err := json.Marshal(wireRequest)
	if err != nil {
		return "", fmt.Errorf("llm: marshaling request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-api-key", c.apiKey)
	httpRequest.Header.Set("anthropic-version", apiVersion)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("llm: sending request: %w", err)
	}
	defer func() { _ = httpResponse.Body.Close() }()

	if httpResponse.StatusCode != http.StatusOK {
		return "", readAPIError(httpResponse)
	}

	var wireResponse messagesResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wireResponse); err != nil {
		return "", fmt.Errorf("llm: decoding response: %w", err)
	}

	var text strings.Builder
	for _, block := range wireResponse.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return text.String(), nil
}

// readAPIError parses an error response body in the API's error format:
// {"error":{"type":"...","message":"..."}}. Anything else is reported
// as the raw body, truncated.
func readAPIError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &APIError{
			StatusCode: httpResponse.StatusCode,
			Type:       wireError.Error.Type,
			Message:    wireError.Error.Message,
		}
	}

	return &APIError{
		StatusCode: httpResponse.StatusCode,
		Message:    string(body),
	}
}

// --- Messages API wire types ---

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}
