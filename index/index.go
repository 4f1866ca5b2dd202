package index

import (
	"errors"
	"fmt"

	"github.com/hqta1110/vnrag/distance"
)

// NoMatch marks an unused result slot.
const NoMatch = -1

var (
	// ErrZeroVector is returned when a cosine query cannot be normalized.
	ErrZeroVector = errors.New("index: zero-norm vector cannot be normalized")

	// ErrNotTrained is returned when vectors are added to an untrained IVF index.
	ErrNotTrained = errors.New("index: index is not trained")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("index: k must be positive")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Kind identifies the index structure.
type Kind int

const (
	// KindFlat is the exact brute-force index.
	KindFlat Kind = iota
	// KindIVF is the approximate inverted-file index.
	KindIVF
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindIVF:
		return "ivf"
	default:
		return "unknown"
	}
}

// SearchResult represents one search slot.
type SearchResult struct {
	// ID is the position of the vector in insertion order, or NoMatch.
	ID int

	// Score is the inner product of unit vectors (cosine) or the squared L2
	// distance (euclidean).
	Score float32
}

// Index is a read-only similarity search structure.
type Index interface {
	// Kind returns the structure of the index.
	Kind() Kind

	// Metric returns the metric the index was built for.
	Metric() distance.Metric

	// Dimension returns the vector dimensionality.
	Dimension() int

	// Len returns the number of indexed vectors.
	Len() int

	// Search returns exactly k slots ordered best-first.
	Search(query []float32, k int) ([]SearchResult, error)
}

// ValidateBasicOptions validates the options every index shares.
func ValidateBasicOptions(dimension int, metric distance.Metric) error {
	if dimension <= 0 {
		return fmt.Errorf("index: dimension must be positive, got %d", dimension)
	}
	if !metric.Valid() {
		return fmt.Errorf("index: unsupported metric %v", metric)
	}
	return nil
}

// PrepareQuery validates the query dimension and, for cosine, returns a
// normalized copy. The caller's slice is never modified.
func PrepareQuery(query []float32, dimension int, metric distance.Metric) ([]float32, error) {
	if len(query) != dimension {
		return nil, &ErrDimensionMismatch{Expected: dimension, Actual: len(query)}
	}
	if metric != distance.MetricCosine {
		return query, nil
	}
	q, ok := distance.NormalizeL2Copy(query)
	if !ok {
		return nil, ErrZeroVector
	}
	return q, nil
}

// Pad extends results to k slots with NoMatch entries.
func Pad(results []SearchResult, k int) []SearchResult {
	for len(results) < k {
		results = append(results, SearchResult{ID: NoMatch})
	}
	return results
}

// Stack copies vectors into one row-major matrix, checking that every row has
// the given dimension.
func Stack(vectors [][]float32, dimension int) ([]float32, error) {
	matrix := make([]float32, 0, len(vectors)*dimension)
	for _, v := range vectors {
		if len(v) != dimension {
			return nil, &ErrDimensionMismatch{Expected: dimension, Actual: len(v)}
		}
		matrix = append(matrix, v...)
	}
	return matrix, nil
}

// NormalizeRows L2-normalizes each row of a row-major matrix in place.
// Zero rows are left as zero vectors and score 0 against every query.
func NormalizeRows(matrix []float32, dimension int) {
	for i := 0; i+dimension <= len(matrix); i += dimension {
		distance.NormalizeL2InPlace(matrix[i : i+dimension])
	}
}
