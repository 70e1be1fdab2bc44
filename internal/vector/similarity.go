// Package vector provides similarity and encoding helpers for embedding vectors.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors of different length are compared.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// Vectors must have the same length. If either vector has zero magnitude the similarity is 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Rounding can push parallel vectors slightly past 1.
	return math.Max(-1, math.Min(1, sim)), nil
}

