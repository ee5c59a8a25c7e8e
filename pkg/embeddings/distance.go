package embeddings

import "math"

// SquaredL2 returns the squared Euclidean distance between a and b.
// Both slices must have the same length; extra trailing values of the longer slice are ignored.
func SquaredL2(a, b []float32) float64 {
	n := min(len(a), len(b))

	var sum float64

	for i := range n {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return sum
}

// SimilarityScore converts a squared L2 distance into the 0..100 score exposed to clients:
// max(0, 1-distance) * 100, rounded to two decimals.
//
// This is a heuristic normalization, not a calibrated probability. It saturates at 0 for
// vectors farther apart than distance 1 and is not comparable across embedding models.
func SimilarityScore(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}

	similarity := math.Max(0, 1-distance)
	if similarity > 1 {
		similarity = 1
	}

	return math.Round(similarity*100*100) / 100
}
