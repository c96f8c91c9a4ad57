package services

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by CosineSimilarity. A candidate that produces one of
// these is skipped rather than failing the whole search.
var (
	ErrDimensionMismatch = errors.New("vector dimensions differ")
	ErrEmptyVector       = errors.New("empty vector")
	ErrNonFiniteVector   = errors.New("vector contains NaN or Inf")
)

// CosineSimilarity returns the cosine of the angle between a and b,
// clamped to [-1, 1]. A zero-norm vector has similarity 0 with anything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if math.IsNaN(dot) || math.IsInf(dot, 0) ||
		math.IsNaN(normA) || math.IsInf(normA, 0) ||
		math.IsNaN(normB) || math.IsInf(normB, 0) {
		return 0, ErrNonFiniteVector
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim)), nil
}

// CheckVector reports whether v can take part in a similarity comparison.
func CheckVector(v []float32) error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return ErrNonFiniteVector
		}
	}
	return nil
}
