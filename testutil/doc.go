// Package testutil provides testing utilities for the retrieval packages.
//
// This package is intended for use in tests only. It provides helpers for
// generating random vectors and verifying approximate search recall.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UnitVectors(1000, 64)
//	clustered := rng.ClusteredVectors(1000, 64, 16, 0.05)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exactIDs, approxIDs)
package testutil
