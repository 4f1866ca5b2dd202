package indexcache

import (
	"context"

	"github.com/hqta1110/vnrag/distance"
	"github.com/hqta1110/vnrag/index"
	"github.com/hqta1110/vnrag/index/flat"
	"github.com/hqta1110/vnrag/index/ivf"
)

// DefaultFlatThreshold is the subset size at which IVF replaces the flat index.
const DefaultFlatThreshold = 5000

// Builder constructs an index over a row-major matrix of n rows.
// Under cosine the rows are already L2-normalized.
type Builder interface {
	Build(ctx context.Context, metric distance.Metric, matrix []float32, dim int) (index.Index, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, metric distance.Metric, matrix []float32, dim int) (index.Index, error)

func (f BuilderFunc) Build(ctx context.Context, metric distance.Metric, matrix []float32, dim int) (index.Index, error) {
	return f(ctx, metric, matrix, dim)
}

// TieredBuilder builds an exact flat index for small subsets and an IVF
// index with floor(sqrt(n)) lists otherwise.
type TieredBuilder struct {
	// FlatThreshold is the first subset size that gets an IVF index.
	FlatThreshold int
	// MaxTrainingPoints caps the IVF training sample.
	MaxTrainingPoints int
	// Seed makes IVF training deterministic.
	Seed int64
}

// DefaultBuilder returns the production TieredBuilder.
func DefaultBuilder() TieredBuilder {
	return TieredBuilder{
		FlatThreshold:     DefaultFlatThreshold,
		MaxTrainingPoints: ivf.DefaultMaxTrainingPoints,
		Seed:              1,
	}
}

// Build implements Builder.
func (b TieredBuilder) Build(ctx context.Context, metric distance.Metric, matrix []float32, dim int) (index.Index, error) {
	n := len(matrix) / dim
	threshold := b.FlatThreshold
	if threshold <= 0 {
		threshold = DefaultFlatThreshold
	}

	if n < threshold {
		f, err := flat.New(func(o *flat.Options) {
			o.Dimension = dim
			o.Metric = metric
		})
		if err != nil {
			return nil, err
		}
		if err := f.Add(matrix); err != nil {
			return nil, err
		}
		return f, nil
	}

	x, err := ivf.New(func(o *ivf.Options) {
		o.Dimension = dim
		o.Metric = metric
		o.NList = ivf.NListFor(n)
		if b.MaxTrainingPoints > 0 {
			o.MaxTrainingPoints = b.MaxTrainingPoints
		}
		o.Seed = b.Seed
	})
	if err != nil {
		return nil, err
	}
	if err := x.Train(ctx, matrix); err != nil {
		return nil, err
	}
	if err := x.Add(matrix); err != nil {
		return nil, err
	}
	return x, nil
}
