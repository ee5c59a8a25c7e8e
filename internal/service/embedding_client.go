package service

import (
	"context"
	"errors"
	"fmt"
)

// EmbeddingClient generates embedding vectors for text.
// Implemented by provider-specific clients (Ollama, OpenAI, local hashing).
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// ErrEmbeddingDimensions is returned by VerifyEmbeddingClient when the probe vector has the wrong length.
var ErrEmbeddingDimensions = errors.New("embedding dimensions do not match configuration")

const embeddingProbeText = "What is the statute of limitations for contract claims?"

// VerifyEmbeddingClient embeds a probe sentence and checks the vector length. The service must
// not start when this fails.
func VerifyEmbeddingClient(ctx context.Context, client EmbeddingClient, dimensions int) error {
	vec, err := client.CreateEmbedding(ctx, embeddingProbeText)
	if err != nil {
		return fmt.Errorf("embedding probe: %w", err)
	}

	if len(vec) != dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrEmbeddingDimensions, len(vec), dimensions)
	}

	return nil
}
