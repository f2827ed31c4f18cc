package retrieval

import "math"

// Similarity returns the cosine similarity of a and b in [-1, 1].
// A zero-magnitude or empty vector yields 0. Vectors of different
// length yield 0 and an error wrapping ErrDimensionMismatch.
func Similarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, dimensionMismatch(len(b), len(a))
	}
	if len(a) == 0 {
		return 0, nil
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim)), nil
}

// CosineSimilarity is Similarity without the mismatch error.
func CosineSimilarity(a, b []float32) float64 {
	sim, _ := Similarity(a, b)
	return sim
}

// IsZero reports whether v carries no signal.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
