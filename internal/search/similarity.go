// Package search provides the vector math behind semantic search: cosine
// similarity and a deterministic top-K ranking over item vectors.
//
//   - No logging in the library (callers decide how/what to log)
//   - Pure functions over caller-owned slices; safe for concurrent use
//   - Deterministic ordering: score descending, then ID ascending
package search

import "math"

// Epsilon is added to the norm product so zero vectors score 0 instead of NaN.
const Epsilon = 1e-10

// CosineSimilarity returns a·b / (|a||b| + Epsilon), in [-1, 1].
// Vectors of different or zero length score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + Epsilon)
}
