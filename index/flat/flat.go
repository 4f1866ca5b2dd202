// Package flat provides an exact brute-force vector index.
package flat

import (
	"github.com/hqta1110/vnrag/distance"
	"github.com/hqta1110/vnrag/index"
	"github.com/hqta1110/vnrag/internal/queue"
)

// Compile-time check to ensure Flat satisfies the index interface.
var _ index.Index = (*Flat)(nil)

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	Dimension int

	// Metric selects inner product on unit vectors (cosine) or squared L2.
	Metric distance.Metric

	// NormalizeVectors enables L2 normalization for stored vectors and queries.
	// Always enabled for cosine.
	NormalizeVectors bool
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	Metric: distance.MetricCosine,
}

// Flat stores vectors in one contiguous row-major matrix and scores every
// vector on each query.
//
// Add must complete before the index is shared; Search is safe for
// concurrent use afterwards.
type Flat struct {
	opts    Options
	score   distance.Func
	vectors []float32
	n       int
}

// New creates a new instance of the flat index.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateBasicOptions(opts.Dimension, opts.Metric); err != nil {
		return nil, err
	}
	if opts.Metric == distance.MetricCosine {
		opts.NormalizeVectors = true
	}

	score, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Flat{opts: opts, score: score}, nil
}

// Add appends a row-major matrix of vectors. The matrix is copied.
func (f *Flat) Add(matrix []float32) error {
	dim := f.opts.Dimension
	if len(matrix)%dim != 0 {
		return &index.ErrDimensionMismatch{Expected: dim, Actual: len(matrix) % dim}
	}
	start := len(f.vectors)
	f.vectors = append(f.vectors, matrix...)
	if f.opts.NormalizeVectors {
		index.NormalizeRows(f.vectors[start:], dim)
	}
	f.n = len(f.vectors) / dim
	return nil
}

// Kind implements index.Index.
func (*Flat) Kind() index.Kind { return index.KindFlat }

// Metric implements index.Index.
func (f *Flat) Metric() distance.Metric { return f.opts.Metric }

// Dimension implements index.Index.
func (f *Flat) Dimension() int { return f.opts.Dimension }

// Len implements index.Index.
func (f *Flat) Len() int { return f.n }

// Vector returns the stored (possibly normalized) vector at position id.
func (f *Flat) Vector(id int) []float32 {
	dim := f.opts.Dimension
	return f.vectors[id*dim : (id+1)*dim]
}

// Search scores the query against every stored vector.
func (f *Flat) Search(query []float32, k int) ([]index.SearchResult, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	q, err := index.PrepareQuery(query, f.opts.Dimension, f.opts.Metric)
	if err != nil {
		return nil, err
	}

	topk := queue.NewTopK(k, f.opts.Metric.HigherIsBetter())
	for id := 0; id < f.n; id++ {
		topk.Offer(id, f.score(q, f.Vector(id)))
	}

	items := topk.Sorted()
	results := make([]index.SearchResult, 0, k)
	for _, it := range items {
		results = append(results, index.SearchResult{ID: it.ID, Score: it.Score})
	}
	return index.Pad(results, k), nil
}
