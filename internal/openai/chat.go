package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
)

// ErrEmptyCompletion is returned when the completion has no choices or only whitespace.
var ErrEmptyCompletion = errors.New("openai: empty completion")

const (
	defaultChatModel   = "llama-3.3-70b-versatile"
	defaultTemperature = 0.7
	defaultMaxTokens   = 500
)

// ChatClient sends single-turn chat completions to an OpenAI-compatible endpoint.
// Requests are attempted once; SDK retries are disabled.
type ChatClient struct {
	sdk         openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

// ChatOption configures sampling on a ChatClient.
type ChatOption func(*ChatClient)

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ChatOption {
	return func(c *ChatClient) {
		c.temperature = temperature
	}
}

// WithMaxTokens bounds the completion length.
func WithMaxTokens(maxTokens int) ChatOption {
	return func(c *ChatClient) {
		if maxTokens > 0 {
			c.maxTokens = int64(maxTokens)
		}
	}
}

// NewChatClient creates a chat completion client. Client options set the endpoint, model and timeout.
func NewChatClient(apiKey string, clientOpts []ClientOption, opts ...ChatOption) *ChatClient {
	cfg := clientConfig{
		model:   defaultChatModel,
		timeout: defaultTimeout,
	}
	for _, opt := range clientOpts {
		opt(&cfg)
	}

	client := &ChatClient{
		sdk:         newSDK(apiKey, cfg),
		model:       cfg.model,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Model returns the configured chat model.
func (c *ChatClient) Model() string {
	return c.model
}

// Complete sends the system and user messages and returns the trimmed reply.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
		Model:       openaisdk.ChatModel(c.model),
		Temperature: param.NewOpt(c.temperature),
		MaxTokens:   param.NewOpt(c.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	return content, nil
}
