package vnrag

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordRetrieve is called after each retrieval.
	// results is the number of passages returned, err is nil if successful.
	RecordRetrieve(k, results int, duration time.Duration, err error)

	// RecordQueryEmbedding is called after each query embedding.
	// ok is false when the embedding service returned no vector.
	RecordQueryEmbedding(duration time.Duration, ok bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRetrieve(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordQueryEmbedding(time.Duration, bool)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	RetrieveCount      atomic.Int64
	RetrieveErrors     atomic.Int64
	RetrieveEmpty      atomic.Int64
	RetrieveTotalNanos atomic.Int64
	EmbedCount         atomic.Int64
	EmbedFailures      atomic.Int64
	EmbedTotalNanos    atomic.Int64
}

// RecordRetrieve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRetrieve(k, results int, duration time.Duration, err error) {
	b.RetrieveCount.Add(1)
	b.RetrieveTotalNanos.Add(duration.Nanoseconds())
	switch {
	case err != nil:
		b.RetrieveErrors.Add(1)
	case results == 0:
		b.RetrieveEmpty.Add(1)
	}
}

// RecordQueryEmbedding implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQueryEmbedding(duration time.Duration, ok bool) {
	b.EmbedCount.Add(1)
	b.EmbedTotalNanos.Add(duration.Nanoseconds())
	if !ok {
		b.EmbedFailures.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RetrieveCount:    b.RetrieveCount.Load(),
		RetrieveErrors:   b.RetrieveErrors.Load(),
		RetrieveEmpty:    b.RetrieveEmpty.Load(),
		RetrieveAvgNanos: avg(b.RetrieveTotalNanos.Load(), b.RetrieveCount.Load()),
		EmbedCount:       b.EmbedCount.Load(),
		EmbedFailures:    b.EmbedFailures.Load(),
		EmbedAvgNanos:    avg(b.EmbedTotalNanos.Load(), b.EmbedCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RetrieveCount    int64 `json:"retrieve_count"`
	RetrieveErrors   int64 `json:"retrieve_errors"`
	RetrieveEmpty    int64 `json:"retrieve_empty"`
	RetrieveAvgNanos int64 `json:"retrieve_avg_nanos"`
	EmbedCount       int64 `json:"embed_count"`
	EmbedFailures    int64 `json:"embed_failures"`
	EmbedAvgNanos    int64 `json:"embed_avg_nanos"`
}
