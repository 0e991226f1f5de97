package vision

import "math"

// Similarity returns the cosine similarity of two signatures.
// Signatures are non-negative so the result lies in [0, 1]. A zero-norm input
// or a length mismatch yields 0.
func Similarity(a, b Signature) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dotProduct / math.Sqrt(normA*normB)
	// Clamp to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	return similarity
}
