// Package openai wraps the official OpenAI Go SDK for embeddings and chat completions.
// Any OpenAI-compatible endpoint (OpenAI, Groq) can be targeted with WithBaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

var (
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("openai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
)

const (
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultDimension      = 384
	defaultTimeout        = 30 * time.Second
)

type clientConfig struct {
	baseURL    string
	model      string
	dimensions int
	timeout    time.Duration
}

// ClientOption configures an embedding or chat client.
type ClientOption func(*clientConfig)

// WithDimensions sets the requested embedding dimension (must match the vector index).
func WithDimensions(dim int) ClientOption {
	return func(c *clientConfig) {
		c.dimensions = dim
	}
}

// WithModel overrides the model name.
func WithModel(model string) ClientOption {
	return func(c *clientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible API root.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = baseURL
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func newSDK(apiKey string, cfg clientConfig) openaisdk.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.timeout),
	}
	if cfg.baseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.baseURL))
	}

	return openaisdk.NewClient(opts...)
}

// Client calls the OpenAI embeddings API via the official SDK.
type Client struct {
	sdk        openaisdk.Client
	model      string
	dimensions int
}

// NewClient creates an OpenAI embeddings client using the official SDK.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	cfg := clientConfig{
		model:      defaultEmbeddingModel,
		dimensions: defaultDimension,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Client{
		sdk:        newSDK(apiKey, cfg),
		model:      cfg.model,
		dimensions: cfg.dimensions,
	}
}

// Dimensions returns the configured embedding length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// CreateEmbedding returns the embedding vector for the given text.
// Blank input yields a zero vector without an API call.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return make([]float32, c.dimensions), nil
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(input),
		},
		Model:      openaisdk.EmbeddingModel(c.model),
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}

	return out, nil
}
