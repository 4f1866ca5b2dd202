// Package embedding is the client for the hosted text-embedding service.
//
// EmbedOne is the single-query path used at retrieval time. It never returns
// an error: any failure yields an empty vector, which callers treat as
// "embedding unavailable".
//
// EmbedMany is the bulk path used when building knowledge files. Input is
// split into fixed-size batches that run on a bounded worker pool. Each batch
// is retried with a fixed delay on transport errors and non-200 statuses.
// A malformed 200 response is never retried. If any batch fails the whole
// call fails, so callers never see partial results, and results are
// reassembled by batch position rather than completion order.
package embedding
