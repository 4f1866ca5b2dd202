package indexcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hqta1110/vnrag/distance"
	"github.com/hqta1110/vnrag/index"
	"github.com/hqta1110/vnrag/knowledge"
	"github.com/hqta1110/vnrag/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBuilder struct {
	inner Builder
	calls atomic.Int32
	kinds []index.Kind
	mu    sync.Mutex
}

func (b *countingBuilder) Build(ctx context.Context, metric distance.Metric, matrix []float32, dim int) (index.Index, error) {
	b.calls.Add(1)
	idx, err := b.inner.Build(ctx, metric, matrix, dim)
	if err == nil {
		b.mu.Lock()
		b.kinds = append(b.kinds, idx.Kind())
		b.mu.Unlock()
	}
	return idx, err
}

func passages(vectors [][]float32) []knowledge.Passage {
	out := make([]knowledge.Passage, len(vectors))
	for i, v := range vectors {
		out[i] = knowledge.Passage{Text: string(rune('a' + i%26)), Embedding: v}
	}
	return out
}

func TestKey_String(t *testing.T) {
	k := Key{FilterKey: "history_law", Metric: distance.MetricCosine, Size: 3}
	assert.Equal(t, "history_law_cosine_3", k.String())

	k = Key{FilterKey: knowledge.AllFilterKey, Metric: distance.MetricEuclidean, Size: 12}
	assert.Equal(t, "all_euclidean_12", k.String())
}

func TestCache_EmptyPassages(t *testing.T) {
	b := &countingBuilder{inner: DefaultBuilder()}
	c := New(func(o *Options) { o.Builder = b })

	e, err := c.Get(context.Background(), "law", nil, distance.MetricCosine)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Equal(t, int32(0), b.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_Reuse(t *testing.T) {
	b := &countingBuilder{inner: DefaultBuilder()}
	c := New(func(o *Options) { o.Builder = b })
	ps := passages(testutil.NewRNG(1).UniformVectors(20, 4))
	ctx := context.Background()

	e1, err := c.Get(ctx, "all", ps, distance.MetricCosine)
	require.NoError(t, err)
	e2, err := c.Get(ctx, "all", ps, distance.MetricCosine)
	require.NoError(t, err)

	assert.Same(t, e1, e2)
	assert.Equal(t, int32(1), b.calls.Load())

	_, err = c.Get(ctx, "all", ps, distance.MetricEuclidean)
	require.NoError(t, err)
	_, err = c.Get(ctx, "all", ps[:19], distance.MetricCosine)
	require.NoError(t, err)
	_, err = c.Get(ctx, "history", ps, distance.MetricCosine)
	require.NoError(t, err)
	assert.Equal(t, int32(4), b.calls.Load())

	st := c.Stats()
	assert.Equal(t, 4, st.Entries)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(4), st.Misses)
	assert.Equal(t, int64(4), st.Builds)
	assert.Len(t, st.Items, 4)
	assert.Equal(t, "history_cosine_20", st.Items[0].Key)
}

func TestCache_ConcurrentGetBuildsOnce(t *testing.T) {
	b := &countingBuilder{inner: DefaultBuilder()}
	c := New(func(o *Options) { o.Builder = b })
	ps := passages(testutil.NewRNG(2).UniformVectors(500, 8))

	var wg sync.WaitGroup
	entries := make([]*Entry, 32)
	for i := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := c.Get(context.Background(), "all", ps, distance.MetricCosine)
			assert.NoError(t, err)
			entries[i] = e
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), b.calls.Load())
	for _, e := range entries {
		assert.Same(t, entries[0], e)
	}
}

func TestCache_IndexChoiceBoundary(t *testing.T) {
	rng := testutil.NewRNG(3)
	vectors := rng.UniformVectors(5000, 4)

	tests := []struct {
		n    int
		want index.Kind
	}{
		{n: 4999, want: index.KindFlat},
		{n: 5000, want: index.KindIVF},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			c := New()
			e, err := c.Get(context.Background(), "all", passages(vectors[:tt.n]), distance.MetricCosine)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Index.Kind())
			assert.Equal(t, tt.n, e.Index.Len())
		})
	}
}

func TestTieredBuilder_InjectedThreshold(t *testing.T) {
	vectors := testutil.NewRNG(4).UniformVectors(10, 3)
	b := &countingBuilder{inner: TieredBuilder{FlatThreshold: 10, Seed: 1}}
	c := New(func(o *Options) { o.Builder = b })
	ctx := context.Background()

	_, err := c.Get(ctx, "all", passages(vectors[:9]), distance.MetricEuclidean)
	require.NoError(t, err)
	_, err = c.Get(ctx, "all", passages(vectors), distance.MetricEuclidean)
	require.NoError(t, err)

	assert.Equal(t, []index.Kind{index.KindFlat, index.KindIVF}, b.kinds)
}

func TestCache_CosineRankingMatchesDirectComputation(t *testing.T) {
	ps := []knowledge.Passage{
		{Text: "a", Embedding: []float32{10, 0}},
		{Text: "b", Embedding: []float32{1, 1}},
		{Text: "c", Embedding: []float32{0, 3}},
		{Text: "d", Embedding: []float32{-2, 1}},
		{Text: "e", Embedding: []float32{3, 1}},
	}
	query := []float32{2, 1}

	c := New()
	e, err := c.Get(context.Background(), "all", ps, distance.MetricCosine)
	require.NoError(t, err)

	res, err := e.Index.Search(query, len(ps))
	require.NoError(t, err)

	// cos(q, .) = e 0.990, a 0.894, b 0.949, c 0.447, d -0.600
	var got []string
	for _, r := range res {
		p, ok := e.Passage(r.ID)
		require.True(t, ok)
		got = append(got, p.Text)

		direct := distance.Dot(query, p.Embedding) / (distance.Norm(query) * distance.Norm(p.Embedding))
		assert.InDelta(t, direct, r.Score, 1e-5)
	}
	assert.Equal(t, []string{"e", "b", "a", "c", "d"}, got)
}

func TestCache_DoesNotModifyPassages(t *testing.T) {
	ps := []knowledge.Passage{{Text: "a", Embedding: []float32{3, 4}}}

	_, err := New().Get(context.Background(), "all", ps, distance.MetricCosine)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, ps[0].Embedding)
}

func TestCache_LRUEviction(t *testing.T) {
	b := &countingBuilder{inner: DefaultBuilder()}
	c := New(func(o *Options) {
		o.Capacity = 2
		o.Builder = b
	})
	ps := passages(testutil.NewRNG(5).UniformVectors(4, 2))
	ctx := context.Background()

	get := func(key string) {
		_, err := c.Get(ctx, key, ps, distance.MetricCosine)
		require.NoError(t, err)
	}

	get("law")
	get("history")
	get("law")
	get("culture")

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, int32(3), b.calls.Load())

	get("law")
	assert.Equal(t, int32(3), b.calls.Load(), "law was recently used and must survive")
	get("history")
	assert.Equal(t, int32(4), b.calls.Load(), "history was evicted")
}

func TestCache_BuildErrorNotCached(t *testing.T) {
	fail := true
	c := New(func(o *Options) {
		o.Builder = BuilderFunc(func(ctx context.Context, metric distance.Metric, matrix []float32, dim int) (index.Index, error) {
			if fail {
				return nil, errors.New("out of memory")
			}
			return DefaultBuilder().Build(ctx, metric, matrix, dim)
		})
	})
	ps := passages([][]float32{{1, 0}, {0, 1}})

	_, err := c.Get(context.Background(), "all", ps, distance.MetricCosine)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	fail = false
	e, err := c.Get(context.Background(), "all", ps, distance.MetricCosine)
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestCache_DimensionMismatch(t *testing.T) {
	ps := passages([][]float32{{1, 0}, {0, 1, 0}})

	_, err := New().Get(context.Background(), "all", ps, distance.MetricCosine)
	var dm *index.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)
}

func TestEntry_Passage(t *testing.T) {
	e := &Entry{Passages: passages([][]float32{{1}})}
	_, ok := e.Passage(index.NoMatch)
	assert.False(t, ok)
	_, ok = e.Passage(1)
	assert.False(t, ok)
	p, ok := e.Passage(0)
	assert.True(t, ok)
	assert.Equal(t, "a", p.Text)
}

func TestCache_CanceledCallerDoesNotAbortSharedBuild(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var buildErr atomic.Value

	c := New(func(o *Options) {
		o.Builder = BuilderFunc(func(ctx context.Context, metric distance.Metric, matrix []float32, dim int) (index.Index, error) {
			close(started)
			<-release
			buildErr.Store(fmt.Sprint(ctx.Err()))
			return DefaultBuilder().Build(ctx, metric, matrix, dim)
		})
	})
	ps := passages([][]float32{{1, 0}, {0, 1}, {1, 1}})

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(firstCtx, "all", ps, distance.MetricCosine)
		firstErr <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return c.Len() == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, "<nil>", buildErr.Load())

	e, err := c.Get(context.Background(), "all", ps, distance.MetricCosine)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 3, e.Index.Len())
	assert.Equal(t, int64(1), c.Stats().Builds)
}
