package googleai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_InvalidDimensions(t *testing.T) {
	_, err := NewClient(context.Background(), "test-key", WithDimensions(0))
	require.ErrorIs(t, err, ErrInvalidDims)
}

func TestClient_BlankInputSkipsRequest(t *testing.T) {
	// The unreachable base URL fails the test if a request is attempted.
	client, err := NewClient(context.Background(), "test-key",
		WithDimensions(4),
		WithModel("text-embedding-004"),
		WithBaseURL("http://127.0.0.1:1"),
	)
	require.NoError(t, err)
	assert.Equal(t, 4, client.Dimensions())

	vec, err := client.CreateEmbedding(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, vec)
}

func TestClient_RequestErrorIsWrapped(t *testing.T) {
	client, err := NewClient(context.Background(), "test-key",
		WithDimensions(4),
		WithBaseURL("http://127.0.0.1:1"),
	)
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "statute of limitations")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini embedding")
}
