package embeddings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquaredL2(t *testing.T) {
	t.Run("identical vectors have zero distance", func(t *testing.T) {
		v := []float32{0.6, 0.8}
		assert.InDelta(t, 0, SquaredL2(v, v), 1e-12)
	})

	t.Run("orthogonal unit vectors are two apart", func(t *testing.T) {
		assert.InDelta(t, 2, SquaredL2([]float32{1, 0}, []float32{0, 1}), 1e-12)
	})

	t.Run("not square rooted", func(t *testing.T) {
		assert.InDelta(t, 25, SquaredL2([]float32{0, 0}, []float32{3, 4}), 1e-12)
	})
}

func TestSimilarityScore(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"exact match", 0, 100},
		{"close match", 0.1234, 87.66},
		{"rounds to two decimals", 0.33333, 66.67},
		{"saturates at distance one", 1, 0},
		{"saturates past one", 1.7, 0},
		{"negative float noise clamps to 100", -1e-9, 100},
		{"nan is zero", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimilarityScore(tt.distance)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestSimilarityScore_monotonic(t *testing.T) {
	prev := SimilarityScore(0)
	for d := 0.01; d <= 2; d += 0.01 {
		got := SimilarityScore(d)
		if got > prev {
			t.Fatalf("score increased from %v to %v at distance %v", prev, got, d)
		}

		prev = got
	}
}
