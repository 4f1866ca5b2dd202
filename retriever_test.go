package vnrag

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/hqta1110/vnrag/blobstore"
	"github.com/hqta1110/vnrag/distance"
	"github.com/hqta1110/vnrag/embedding"
	"github.com/hqta1110/vnrag/index"
	"github.com/hqta1110/vnrag/indexcache"
	"github.com/hqta1110/vnrag/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKnowledge = `[
  {"text": "Paris is the capital of France", "fields": ["geography"], "embedding": [1, 0]},
  {"text": "Photosynthesis converts light", "fields": ["science"], "embedding": [0, 1]},
  {"text": "Hanoi is the capital of Vietnam", "fields": ["geography", "history"], "embedding": [0.6, 0.8]}
]`

func newTestContext(t *testing.T, optFns ...func(o *indexcache.Options)) *RetrievalContext {
	t.Helper()

	blobs := blobstore.NewMemoryStore()
	require.NoError(t, blobs.Put(context.Background(), knowledge.DefaultFileName, []byte(testKnowledge)))

	return NewRetrievalContext(knowledge.NewStore(blobs), optFns...)
}

func constEmbedder(v []float32, calls *atomic.Int64) embedding.Func {
	return func(context.Context, string) []float32 {
		if calls != nil {
			calls.Add(1)
		}
		return v
	}
}

func TestRetrieveTopicFiltered(t *testing.T) {
	r := NewRetriever(newTestContext(t), constEmbedder([]float32{1, 0}, nil))

	results, err := r.Retrieve(context.Background(), "capital of France", WithTopicNames("geography"), WithK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Paris is the capital of France", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, []string{"geography"}, results[0].Topics)
}

func TestRetrieveUnfilteredRanking(t *testing.T) {
	r := NewRetriever(newTestContext(t), constEmbedder([]float32{1, 0}, nil))

	results, err := r.Retrieve(context.Background(), "anything", WithK(10))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{
		"Paris is the capital of France",
		"Hanoi is the capital of Vietnam",
		"Photosynthesis converts light",
	}, results.Texts())
	assert.InDelta(t, 0.6, results[1].Score, 1e-6)
	assert.InDelta(t, 0.0, results[2].Score, 1e-6)
}

func TestRetrieveEuclidean(t *testing.T) {
	r := NewRetriever(newTestContext(t), constEmbedder([]float32{1, 0}, nil))

	results, err := r.Retrieve(context.Background(), "q", WithMetric(distance.MetricEuclidean), WithK(3))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Paris is the capital of France", results[0].Text)
	assert.InDelta(t, 0.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.8, results[1].Score, 1e-6)
	assert.InDelta(t, 2.0, results[2].Score, 1e-6)
}

func TestRetrieveUnknownTopicsSearchEverything(t *testing.T) {
	rc := newTestContext(t)
	r := NewRetriever(rc, constEmbedder([]float32{0, 1}, nil))

	results, err := r.Retrieve(context.Background(), "light", WithTopicNames("science", "Biology"), WithK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Photosynthesis converts light", results[0].Text)

	stats := rc.Cache().Stats()
	require.Len(t, stats.Items, 1)
	assert.Equal(t, "all_cosine_3", stats.Items[0].Key)
}

func TestRetrieveUnknownTopicsAreDropped(t *testing.T) {
	r := NewRetriever(newTestContext(t), constEmbedder([]float32{0, 1}, nil))

	results, err := r.Retrieve(context.Background(), "light", WithTopicNames("science", "history"), WithK(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hanoi is the capital of Vietnam"}, results.Texts())
}

func TestRetrieveEmptyTopicListSearchesEverything(t *testing.T) {
	r := NewRetriever(newTestContext(t), constEmbedder([]float32{0, 1}, nil))

	results, err := r.Retrieve(context.Background(), "light", WithTopicNames(), WithK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Photosynthesis converts light", results[0].Text)
}

func TestRetrieveTopicWithoutPassages(t *testing.T) {
	var calls atomic.Int64
	r := NewRetriever(newTestContext(t), constEmbedder([]float32{1, 0}, &calls))

	results, err := r.Retrieve(context.Background(), "q", WithTopics(knowledge.TopicLaw))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, calls.Load())
}

func TestRetrieveEmbeddingUnavailable(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	r := NewRetriever(newTestContext(t), constEmbedder(nil, nil), WithMetricsCollector(metrics))

	results, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, results)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.EmbedFailures)
	assert.Equal(t, int64(1), stats.RetrieveEmpty)
	assert.Zero(t, r.Context().Cache().Len(), "no index is built without a query vector")
}

func TestRetrieveZeroQueryVector(t *testing.T) {
	r := NewRetriever(newTestContext(t), constEmbedder([]float32{0, 0}, nil))

	results, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = r.Retrieve(context.Background(), "q", WithMetric(distance.MetricEuclidean), WithK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestRetrieveValidation(t *testing.T) {
	r := NewRetriever(newTestContext(t), constEmbedder([]float32{1, 0}, nil))
	ctx := context.Background()

	_, err := r.Retrieve(ctx, "q", WithK(0))
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = r.Retrieve(ctx, "q", WithK(-3))
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = r.Retrieve(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = r.Retrieve(ctx, "q", WithMetric(distance.Metric(42)))
	assert.ErrorIs(t, err, ErrInvalidMetric)
}

func TestRetrieveDimensionMismatch(t *testing.T) {
	r := NewRetriever(newTestContext(t), constEmbedder([]float32{1, 0, 0}, nil))

	_, err := r.Retrieve(context.Background(), "q")
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)

	var inner *index.ErrDimensionMismatch
	assert.ErrorAs(t, err, &inner)
}

func TestRetrieveReusesIndex(t *testing.T) {
	var builds atomic.Int64
	rc := newTestContext(t, func(o *indexcache.Options) {
		def := indexcache.DefaultBuilder()
		o.Builder = indexcache.BuilderFunc(func(ctx context.Context, m distance.Metric, matrix []float32, dim int) (index.Index, error) {
			builds.Add(1)
			return def.Build(ctx, m, matrix, dim)
		})
	})
	r := NewRetriever(rc, constEmbedder([]float32{1, 0}, nil))
	ctx := context.Background()

	for range 3 {
		_, err := r.Retrieve(ctx, "q", WithTopicNames("geography"))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), builds.Load())

	_, err := r.Retrieve(ctx, "q", WithTopicNames("geography"), WithMetric(distance.MetricEuclidean))
	require.NoError(t, err)
	_, err = r.Retrieve(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(3), builds.Load())

	stats := rc.Stats()
	assert.Equal(t, 3, stats.Cache.Entries)
	assert.Equal(t, int64(2), stats.Cache.Hits)
	assert.Equal(t, 3, stats.Knowledge.Passages)
}

func TestRetrieveIndexBuildFailure(t *testing.T) {
	boom := errors.New("boom")
	rc := newTestContext(t, func(o *indexcache.Options) {
		o.Builder = indexcache.BuilderFunc(func(context.Context, distance.Metric, []float32, int) (index.Index, error) {
			return nil, boom
		})
	})
	r := NewRetriever(rc, constEmbedder([]float32{1, 0}, nil))

	results, err := r.Retrieve(context.Background(), "q")
	require.ErrorIs(t, err, boom)
	assert.Nil(t, results)
}

func TestRetrieveRecoversPanics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	r := NewRetriever(newTestContext(t), embedding.Func(func(context.Context, string) []float32 {
		panic("embedder exploded")
	}), WithMetricsCollector(metrics))

	results, err := r.Retrieve(context.Background(), "q")
	require.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "embedder exploded")
	assert.Nil(t, results)
	assert.Equal(t, int64(1), metrics.GetStats().RetrieveErrors)
}

func TestRetrieveKnowledgeLoadFailure(t *testing.T) {
	store := knowledge.NewStore(failingStore{})
	r := NewRetriever(NewRetrievalContext(store), constEmbedder([]float32{1, 0}, nil))

	_, err := r.Retrieve(context.Background(), "q")
	require.Error(t, err)
}

func TestRetrieveDefaults(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	passages := make([]knowledge.Passage, 8)
	for i := range passages {
		passages[i] = knowledge.Passage{Text: string(rune('a' + i)), Embedding: []float32{float32(i + 1), 1}}
	}
	data, err := knowledge.Encode(passages, nil, knowledge.CompressionNone)
	require.NoError(t, err)
	require.NoError(t, blobs.Put(context.Background(), knowledge.DefaultFileName, data))

	rc := NewRetrievalContext(knowledge.NewStore(blobs))
	r := NewRetriever(rc, constEmbedder([]float32{1, 0}, nil))
	results, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, results, DefaultK)

	r = NewRetriever(rc, constEmbedder([]float32{1, 0}, nil), WithDefaultK(2), WithDefaultMetric(distance.MetricEuclidean), WithLogger(nil))
	results, err = r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Text)
}

type failingStore struct{}

func (failingStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("storage offline")
}

func (failingStore) Put(context.Context, string, []byte) error { return errors.New("storage offline") }

func (failingStore) List(context.Context, string) ([]string, error) { return nil, nil }
