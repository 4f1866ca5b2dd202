package vnrag

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hqta1110/vnrag/distance"
	"github.com/hqta1110/vnrag/embedding"
	"github.com/hqta1110/vnrag/index"
	"github.com/hqta1110/vnrag/knowledge"
)

// Result is one retrieved passage.
type Result struct {
	// Score is the cosine similarity (higher is better) or the squared
	// euclidean distance (lower is better).
	Score   float32           `json:"score"`
	Text    string            `json:"text"`
	Topics  []string          `json:"topics,omitempty"`
	Passage knowledge.Passage `json:"-"`
}

// Results is a ranked result list.
type Results []Result

// Texts returns the passage texts in rank order.
func (rs Results) Texts() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Text
	}
	return out
}

// Retriever answers passage queries against a RetrievalContext.
// It is safe for concurrent use.
type Retriever struct {
	rc       *RetrievalContext
	embedder embedding.Embedder
	opts     options
}

// NewRetriever creates a Retriever.
func NewRetriever(rc *RetrievalContext, embedder embedding.Embedder, opts ...Option) *Retriever {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		k:                DefaultK,
		metric:           distance.MetricCosine,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Retriever{rc: rc, embedder: embedder, opts: o}
}

// Context returns the retrieval context.
func (r *Retriever) Context() *RetrievalContext { return r.rc }

// Retrieve returns at most k passages most similar to query, best first.
//
// An unavailable or degenerate query embedding, an empty corpus, or a topic
// filter matching nothing all yield an empty result and a nil error.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...RetrieveOption) (results Results, err error) {
	ro := retrieveOptions{k: r.opts.k, metric: r.opts.metric}
	for _, opt := range opts {
		opt(&ro)
	}

	log := r.opts.logger.WithRequestID(uuid.NewString())
	started := time.Now()
	filterKey := ""

	defer func() {
		if rec := recover(); rec != nil {
			log.ErrorContext(ctx, "retrieval panic", "panic", rec, "stack", string(debug.Stack()))
			results, err = nil, fmt.Errorf("%w: %v", ErrInternal, rec)
		}
		err = translateError(err)
		if err != nil {
			results = nil
		} else if results == nil {
			results = Results{}
		}
		r.opts.metricsCollector.RecordRetrieve(ro.k, len(results), time.Since(started), err)
		log.LogRetrieve(ctx, filterKey, ro.k, len(results), time.Since(started), err)
	}()

	if ro.k <= 0 {
		return nil, ErrInvalidK
	}
	if !ro.metric.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetric, ro.metric)
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	filterKey, subset, err := r.rc.store.Filter(ctx, ro.topics)
	log.LogLoad(ctx, len(subset), err)
	if err != nil {
		return nil, err
	}
	if len(subset) == 0 {
		return Results{}, nil
	}

	embedStarted := time.Now()
	vec := r.embedder.EmbedOne(ctx, query)
	r.opts.metricsCollector.RecordQueryEmbedding(time.Since(embedStarted), len(vec) > 0)
	log.LogEmbed(ctx, len(vec), time.Since(embedStarted))
	if len(vec) == 0 {
		return Results{}, nil
	}
	if ro.metric == distance.MetricCosine && distance.IsZero(vec) {
		log.DebugContext(ctx, "zero query vector under cosine")
		return Results{}, nil
	}

	entry, err := r.rc.cache.Get(ctx, filterKey, subset, ro.metric)
	if entry == nil || err != nil {
		log.LogIndexBuild(ctx, filterKey, "", 0, err)
		return Results{}, err
	}
	log.LogIndexBuild(ctx, entry.Key.String(), entry.Index.Kind().String(), entry.Index.Len(), nil)

	hits, err := entry.Index.Search(vec, ro.k)
	if errors.Is(err, index.ErrZeroVector) {
		return Results{}, nil
	}
	if err != nil {
		return nil, err
	}

	results = make(Results, 0, len(hits))
	for _, h := range hits {
		if h.ID == index.NoMatch {
			continue
		}
		p, ok := entry.Passage(h.ID)
		if !ok {
			continue
		}
		results = append(results, Result{
			Score:   h.Score,
			Text:    p.Text,
			Topics:  knowledge.TopicNames(p.Topics),
			Passage: p,
		})
	}
	return results, nil
}
