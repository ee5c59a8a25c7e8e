package service

import (
	"context"
	"fmt"

	"github.com/legalqa/assistant/internal/config"
	"github.com/legalqa/assistant/internal/embeddings"
	"github.com/legalqa/assistant/internal/googleai"
	"github.com/legalqa/assistant/internal/ollama"
	"github.com/legalqa/assistant/internal/openai"
)

// NewEmbeddingClient builds the embedding client selected by cfg.EmbeddingProvider.
func NewEmbeddingClient(ctx context.Context, cfg *config.Config) (EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderOllama:
		return ollama.NewClient(cfg.EmbeddingBaseURL,
			ollama.WithModel(cfg.EmbeddingModel),
			ollama.WithToken(cfg.EmbeddingProviderAPIKey),
			ollama.WithDimensions(cfg.EmbeddingDimensions),
			ollama.WithTimeout(cfg.EmbeddingTimeout),
		), nil
	case config.EmbeddingProviderOpenAI:
		if cfg.EmbeddingProviderAPIKey == "" {
			return nil, fmt.Errorf("EMBEDDING_PROVIDER_API_KEY is required for the %s embedding provider", cfg.EmbeddingProvider)
		}

		return openai.NewClient(cfg.EmbeddingProviderAPIKey,
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithBaseURL(cfg.EmbeddingBaseURL),
			openai.WithDimensions(cfg.EmbeddingDimensions),
			openai.WithTimeout(cfg.EmbeddingTimeout),
		), nil
	case config.EmbeddingProviderGoogle:
		if cfg.EmbeddingProviderAPIKey == "" {
			return nil, fmt.Errorf("EMBEDDING_PROVIDER_API_KEY is required for the %s embedding provider", cfg.EmbeddingProvider)
		}

		client, err := googleai.NewClient(ctx, cfg.EmbeddingProviderAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithBaseURL(cfg.EmbeddingBaseURL),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	case config.EmbeddingProviderHashing:
		return embeddings.NewHashingClient(cfg.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}
