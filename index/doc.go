// Package index provides the vector index contracts shared by the flat and
// IVF implementations.
//
// Two index kinds exist:
//
//   - Flat: exact brute-force search; every query is scored against all vectors.
//   - IVF: inverted-file search; vectors are partitioned by a k-means coarse
//     quantizer and only the nprobe most promising lists are scanned.
//
// Both kinds follow the same search contract: Search returns exactly k slots
// ordered best-first. When the index holds fewer than k reachable vectors the
// trailing slots carry ID == NoMatch and must be discarded by the caller.
//
// Indexes are built once (Add/Train before first Search) and are read-only
// afterwards, which makes concurrent Search calls safe without locking.
//
// # Subpackages
//
//   - flat: exact search over a contiguous row-major matrix
//   - ivf: approximate search over k-means partitions
package index
