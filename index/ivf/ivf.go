// Package ivf provides an inverted-file (IVF-Flat) approximate vector index.
//
// Vectors are partitioned into NList clusters by a k-means coarse quantizer.
// A query scores the centroids, scans only the NProbe best lists, and returns
// the best k vectors among them.
package ivf

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/hqta1110/vnrag/distance"
	"github.com/hqta1110/vnrag/index"
	"github.com/hqta1110/vnrag/internal/kmeans"
	"github.com/hqta1110/vnrag/internal/queue"
)

// Compile-time check to ensure IVF satisfies the index interface.
var _ index.Index = (*IVF)(nil)

const (
	// DefaultMaxNProbe caps the number of probed lists.
	DefaultMaxNProbe = 32

	// DefaultMaxTrainingPoints caps the k-means training sample.
	DefaultMaxTrainingPoints = 100_000

	// DefaultMaxIterations bounds Lloyd's iterations during training.
	DefaultMaxIterations = 25
)

// Options contains configuration options for the IVF index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	Dimension int

	// Metric selects inner product on unit vectors (cosine) or squared L2.
	Metric distance.Metric

	// NList is the number of inverted lists (clusters). Required.
	NList int

	// NProbe is the number of lists scanned per query.
	// Zero means min(DefaultMaxNProbe, NList).
	NProbe int

	// MaxTrainingPoints caps the training sample; larger inputs are
	// subsampled without replacement.
	MaxTrainingPoints int

	// MaxIterations bounds k-means iterations.
	MaxIterations int

	// Seed makes training deterministic.
	Seed int64
}

// DefaultOptions contains the default configuration options for the IVF index.
var DefaultOptions = Options{
	Metric:            distance.MetricCosine,
	MaxTrainingPoints: DefaultMaxTrainingPoints,
	MaxIterations:     DefaultMaxIterations,
	Seed:              1,
}

// NListFor returns floor(sqrt(n)), the list count used for a corpus of n vectors.
func NListFor(n int) int {
	nlist := int(math.Sqrt(float64(n)))
	if nlist < 1 {
		return 1
	}
	return nlist
}

// IVF is an inverted-file index.
//
// Train and Add must complete before the index is shared; Search is safe for
// concurrent use afterwards.
type IVF struct {
	opts      Options
	score     distance.Func
	centroids []float32
	lists     [][]int   // list -> vector positions
	vectors   []float32 // row-major, position order
	n         int
	trainedOn int
}

// New creates an untrained IVF index.
func New(optFns ...func(o *Options)) (*IVF, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateBasicOptions(opts.Dimension, opts.Metric); err != nil {
		return nil, err
	}
	if opts.NList <= 0 {
		return nil, fmt.Errorf("ivf: nlist must be positive, got %d", opts.NList)
	}
	if opts.NProbe <= 0 {
		opts.NProbe = min(DefaultMaxNProbe, opts.NList)
	}
	if opts.NProbe > opts.NList {
		opts.NProbe = opts.NList
	}
	if opts.MaxTrainingPoints <= 0 {
		opts.MaxTrainingPoints = DefaultMaxTrainingPoints
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}

	score, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &IVF{opts: opts, score: score}, nil
}

// Train learns the coarse quantizer from a row-major matrix.
// Under cosine the rows are expected to be L2-normalized already.
func (x *IVF) Train(ctx context.Context, matrix []float32) error {
	dim := x.opts.Dimension
	if len(matrix)%dim != 0 {
		return &index.ErrDimensionMismatch{Expected: dim, Actual: len(matrix) % dim}
	}
	n := len(matrix) / dim
	rng := rand.New(rand.NewSource(x.opts.Seed))

	sample := matrix
	if n > x.opts.MaxTrainingPoints {
		sample = make([]float32, 0, x.opts.MaxTrainingPoints*dim)
		for _, row := range rng.Perm(n)[:x.opts.MaxTrainingPoints] {
			sample = append(sample, matrix[row*dim:(row+1)*dim]...)
		}
	}

	centroids, err := kmeans.TrainKMeans(ctx, sample, dim, x.opts.NList, x.opts.Metric, x.opts.MaxIterations, rng)
	if err != nil {
		return fmt.Errorf("ivf: train: %w", err)
	}

	x.centroids = centroids
	x.lists = make([][]int, x.opts.NList)
	x.trainedOn = len(sample) / dim
	return nil
}

// IsTrained reports whether the coarse quantizer has been learned.
func (x *IVF) IsTrained() bool { return x.centroids != nil }

// TrainedOn returns the size of the training sample.
func (x *IVF) TrainedOn() int { return x.trainedOn }

// Add assigns each row of a row-major matrix to its nearest list.
func (x *IVF) Add(matrix []float32) error {
	if !x.IsTrained() {
		return index.ErrNotTrained
	}
	dim := x.opts.Dimension
	if len(matrix)%dim != 0 {
		return &index.ErrDimensionMismatch{Expected: dim, Actual: len(matrix) % dim}
	}

	start := x.n
	x.vectors = append(x.vectors, matrix...)
	x.n = len(x.vectors) / dim
	if x.opts.Metric == distance.MetricCosine {
		index.NormalizeRows(x.vectors[start*dim:], dim)
	}

	for id := start; id < x.n; id++ {
		list, err := kmeans.AssignPartition(x.vector(id), x.centroids, dim, x.opts.Metric)
		if err != nil {
			return err
		}
		x.lists[list] = append(x.lists[list], id)
	}
	return nil
}

// Kind implements index.Index.
func (*IVF) Kind() index.Kind { return index.KindIVF }

// Metric implements index.Index.
func (x *IVF) Metric() distance.Metric { return x.opts.Metric }

// Dimension implements index.Index.
func (x *IVF) Dimension() int { return x.opts.Dimension }

// Len implements index.Index.
func (x *IVF) Len() int { return x.n }

// NList returns the number of inverted lists.
func (x *IVF) NList() int { return x.opts.NList }

// NProbe returns the number of lists scanned per query.
func (x *IVF) NProbe() int { return x.opts.NProbe }

// ListSizes returns the number of vectors in each list.
func (x *IVF) ListSizes() []int {
	sizes := make([]int, len(x.lists))
	for i, l := range x.lists {
		sizes[i] = len(l)
	}
	return sizes
}

func (x *IVF) vector(id int) []float32 {
	dim := x.opts.Dimension
	return x.vectors[id*dim : (id+1)*dim]
}

// Search scans the NProbe closest lists.
func (x *IVF) Search(query []float32, k int) ([]index.SearchResult, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if !x.IsTrained() {
		return nil, index.ErrNotTrained
	}
	q, err := index.PrepareQuery(query, x.opts.Dimension, x.opts.Metric)
	if err != nil {
		return nil, err
	}

	probes, err := kmeans.FindClosestCentroids(q, x.centroids, x.opts.Dimension, x.opts.NProbe, x.opts.Metric)
	if err != nil {
		return nil, err
	}

	topk := queue.NewTopK(k, x.opts.Metric.HigherIsBetter())
	for _, list := range probes {
		for _, id := range x.lists[list] {
			topk.Offer(id, x.score(q, x.vector(id)))
		}
	}

	items := topk.Sorted()
	results := make([]index.SearchResult, 0, k)
	for _, it := range items {
		results = append(results, index.SearchResult{ID: it.ID, Score: it.Score})
	}
	return index.Pad(results, k), nil
}
