package kmeans

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/hqta1110/vnrag/distance"
)

// ErrNotEnoughVectors is returned when fewer vectors than clusters are supplied.
var ErrNotEnoughVectors = errors.New("kmeans: fewer training vectors than clusters")

// TrainKMeans trains k centroids from the given vectors using Lloyd's algorithm.
// vectors is a flattened (n * dim) matrix. It returns the flattened centroids (k * dim).
func TrainKMeans(ctx context.Context, vectors []float32, dim, k int, metric distance.Metric, maxIter int, rng *rand.Rand) ([]float32, error) {
	if _, err := distance.Provider(metric); err != nil {
		return nil, err
	}
	if dim <= 0 || k <= 0 {
		return nil, errors.New("kmeans: dim and k must be positive")
	}
	n := len(vectors) / dim
	if n < k {
		return nil, ErrNotEnoughVectors
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	centroids := seed(vectors, dim, n, k, metric, rng)

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		for i := 0; i < n; i++ {
			best := nearest(vectors[i*dim:(i+1)*dim], centroids, dim, metric)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		if !changed {
			break
		}

		clear(sums)
		clear(counts)

		for i := 0; i < n; i++ {
			cluster := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			row := sums[cluster*dim : (cluster+1)*dim]
			for d := range row {
				row[d] += vec[d]
			}
			counts[cluster]++
		}

		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				scale := 1.0 / float32(counts[j])
				for d := 0; d < dim; d++ {
					centroids[j*dim+d] = sums[j*dim+d] * scale
				}
			} else {
				// Empty cluster: reseed from a random point
				idx := rng.Intn(n)
				copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
			}
		}
		normalize(centroids, dim, metric)
	}

	return centroids, nil
}

// AssignPartition finds the closest centroid for a vector.
func AssignPartition(vec []float32, centroids []float32, dim int, metric distance.Metric) (int, error) {
	if _, err := distance.Provider(metric); err != nil {
		return -1, err
	}
	return nearest(vec, centroids, dim, metric), nil
}

type centroidScore struct {
	id    int
	score float32
}

// FindClosestCentroids returns the indices of the n closest centroids to the query vector,
// best first.
func FindClosestCentroids(query []float32, centroids []float32, dim int, n int, metric distance.Metric) ([]int, error) {
	score, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	k := len(centroids) / dim
	if n > k {
		n = k
	}

	scores := make([]centroidScore, k)
	for i := 0; i < k; i++ {
		scores[i] = centroidScore{id: i, score: score(query, centroids[i*dim:(i+1)*dim])}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return metric.Better(scores[i].score, scores[j].score)
	})

	result := make([]int, n)
	for i := 0; i < n; i++ {
		result[i] = scores[i].id
	}
	return result, nil
}

func nearest(vec, centroids []float32, dim int, metric distance.Metric) int {
	score, _ := distance.Provider(metric)
	k := len(centroids) / dim

	best := -1
	bestScore := float32(math.Inf(1))
	if metric.HigherIsBetter() {
		bestScore = float32(math.Inf(-1))
	}
	for j := 0; j < k; j++ {
		s := score(vec, centroids[j*dim:(j+1)*dim])
		if best == -1 || metric.Better(s, bestScore) {
			best = j
			bestScore = s
		}
	}
	return best
}

// seed picks initial centroids with k-means++ (D² weighting).
func seed(vectors []float32, dim, n, k int, metric distance.Metric, rng *rand.Rand) []float32 {
	centroids := make([]float32, 0, k*dim)
	first := rng.Intn(n)
	centroids = append(centroids, vectors[first*dim:(first+1)*dim]...)
	normalize(centroids[len(centroids)-dim:], dim, metric)

	gaps := make([]float64, n)
	for i := range gaps {
		gaps[i] = math.Inf(1)
	}

	for c := 1; c < k; c++ {
		last := centroids[(c-1)*dim : c*dim]
		var total float64
		for i := 0; i < n; i++ {
			g := gap(vectors[i*dim:(i+1)*dim], last, metric)
			if g < gaps[i] {
				gaps[i] = g
			}
			total += gaps[i]
		}

		next := rng.Intn(n)
		if total > 0 {
			target := rng.Float64() * total
			for i := 0; i < n; i++ {
				target -= gaps[i]
				if target <= 0 {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, vectors[next*dim:(next+1)*dim]...)
		normalize(centroids[len(centroids)-dim:], dim, metric)
	}
	return centroids
}

// gap is a non-negative dissimilarity used for seeding.
func gap(vec, centroid []float32, metric distance.Metric) float64 {
	if metric == distance.MetricCosine {
		norm := distance.Norm(vec)
		if norm == 0 {
			return 1
		}
		return math.Max(0, float64(1-distance.Dot(vec, centroid)/norm))
	}
	return float64(distance.SquaredL2(vec, centroid))
}

func normalize(centroids []float32, dim int, metric distance.Metric) {
	if metric != distance.MetricCosine {
		return
	}
	for j := 0; j < len(centroids)/dim; j++ {
		distance.NormalizeL2InPlace(centroids[j*dim : (j+1)*dim])
	}
}
