// Package ollama is an embedding client for the Ollama REST API.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrNoEmbeddingInResponse is returned when /api/embed returns no vectors.
	ErrNoEmbeddingInResponse = errors.New("ollama: no embedding in response")
	// ErrDimensionMismatch is returned when the model's vector length differs from the configured dimensions.
	ErrDimensionMismatch = errors.New("ollama: embedding dimension mismatch")
)

const (
	defaultBaseURL    = "http://localhost:11434"
	defaultModel      = "all-minilm"
	defaultDimensions = 384
	defaultTimeout    = 30 * time.Second
	defaultRetryMax   = 3
)

// Client generates embeddings with a local or hosted Ollama server.
type Client struct {
	baseURL    string
	model      string
	token      string
	dimensions int
	httpClient *retryablehttp.Client
}

// Option configures the Client.
type Option func(*Client)

// WithModel overrides the embedding model (default all-minilm).
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithToken sets a bearer token for hosted Ollama endpoints.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithDimensions sets the expected vector length.
func WithDimensions(dim int) Option {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.HTTPClient.Timeout = timeout
		}
	}
}

// WithRetry sets how often 5xx responses and connection errors are retried and the backoff bounds.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// NewClient creates an Ollama embedding client for baseURL (e.g. http://localhost:11434).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = defaultTimeout
	retryClient.RetryMax = defaultRetryMax
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      defaultModel,
		dimensions: defaultDimensions,
		httpClient: retryClient,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Dimensions returns the configured embedding length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// CreateEmbedding returns the embedding for input. Blank input yields a zero vector without a request.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return make([]float32, c.dimensions), nil
	}

	body, err := c.post(ctx, "/api/embed", embedRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Embeddings[0]
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	return emb, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
