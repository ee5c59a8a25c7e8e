// Package embeddings provides a local embedding provider that needs no model server.
package embeddings

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"unicode"

	pkgembeddings "github.com/legalqa/assistant/pkg/embeddings"
)

// ErrInvalidDims is returned when dimensions is not positive.
var ErrInvalidDims = errors.New("embeddings: dimensions must be positive")

// HashingClient produces deterministic embeddings by feature hashing lower-cased word
// unigrams and bigrams into a signed bucket vector, then L2-normalizing it.
// Texts sharing vocabulary land close together; it is meant for development and tests.
type HashingClient struct {
	dimensions int
}

// NewHashingClient creates a hashing embedder with the given vector length.
func NewHashingClient(dimensions int) *HashingClient {
	return &HashingClient{dimensions: dimensions}
}

// Dimensions returns the embedding length.
func (c *HashingClient) Dimensions() int {
	return c.dimensions
}

// CreateEmbedding returns the hashed embedding of input. Text without any word yields a zero vector.
func (c *HashingClient) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	vec := make([]float32, c.dimensions)

	tokens := tokenize(input)
	for i, tok := range tokens {
		c.add(vec, tok)

		if i > 0 {
			c.add(vec, tokens[i-1]+" "+tok)
		}
	}

	pkgembeddings.NormalizeL2(vec)

	return vec, nil
}

func (c *HashingClient) add(vec []float32, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := sum % uint64(c.dimensions)
	if sum>>63 == 1 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
