// Package distance provides the vector math used by the retrieval indexes.
//
// # Supported Metrics
//
//   - MetricCosine: cosine similarity, implemented as the dot product of
//     L2-normalized vectors. Higher is better.
//   - MetricEuclidean: squared Euclidean distance. Lower is better.
//
// # Usage
//
//	sim := distance.Dot(a, b)
//	d := distance.SquaredL2(a, b)
//	ok := distance.NormalizeL2InPlace(vec) // false for zero vectors
package distance
