// Package kmeans implements k-means clustering for coarse quantizer training.
//
// Used by the IVF index to partition vectors into inverted lists. Under the
// cosine metric the centroids are kept L2-normalized (spherical k-means) and
// assignment maximizes the inner product.
package kmeans
