package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hqta1110/vnrag/blobstore"
	"github.com/hqta1110/vnrag/codec"
)

// DefaultFileName is the knowledge file name inside a blob store.
const DefaultFileName = "knowledge.json"

// Options configures a Store.
type Options struct {
	// Name is the blob holding the knowledge file.
	Name   string
	Codec  codec.Codec
	Logger *slog.Logger
}

// Stats describes a loaded corpus.
type Stats struct {
	Loaded      bool           `json:"loaded"`
	Passages    int            `json:"passages"`
	Dimension   int            `json:"dimension"`
	TopicCounts map[string]int `json:"topic_counts"`
	Untagged    int            `json:"untagged"`
}

// Store is a lazily loaded, read-only passage corpus.
// It is safe for concurrent use.
type Store struct {
	blobs blobstore.BlobStore
	opts  Options

	mu       sync.Mutex
	loaded   bool
	passages []Passage
	postings [numTopics]*roaring.Bitmap
	dim      int
}

// NewStore creates a Store reading Options.Name from blobs.
// Nothing is read until the first Load.
func NewStore(blobs blobstore.BlobStore, optFns ...func(o *Options)) *Store {
	opts := Options{Name: DefaultFileName}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store{blobs: blobs, opts: opts}
}

// NewStaticStore creates an already loaded Store over passages.
func NewStaticStore(passages []Passage) (*Store, error) {
	dim, err := checkDimensions(passages)
	if err != nil {
		return nil, err
	}
	s := NewStore(nil)
	s.publish(passages, dim)
	return s, nil
}

// Load returns the corpus, reading it on the first successful call only.
// A missing knowledge file yields an empty corpus, not an error.
// Failed loads are not cached, so a later call tries again.
func (s *Store) Load(ctx context.Context) ([]Passage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.passages, nil
	}

	started := time.Now()
	data, err := blobstore.ReadAll(ctx, s.blobs, s.opts.Name)
	if errors.Is(err, blobstore.ErrNotFound) {
		s.opts.Logger.WarnContext(ctx, "knowledge file not found, corpus is empty", "name", s.opts.Name)
		s.publish(nil, 0)
		return s.passages, nil
	}
	if err != nil {
		return nil, fmt.Errorf("knowledge: load %q: %w", s.opts.Name, err)
	}

	passages, err := Decode(data, s.opts.Codec)
	if err != nil {
		return nil, fmt.Errorf("knowledge: load %q: %w", s.opts.Name, err)
	}

	dim := 0
	if len(passages) > 0 {
		dim = len(passages[0].Embedding)
	}
	s.publish(passages, dim)

	s.opts.Logger.InfoContext(ctx, "knowledge loaded",
		"name", s.opts.Name,
		"passages", len(passages),
		"dimension", dim,
		"bytes", len(data),
		"duration", time.Since(started),
	)
	return s.passages, nil
}

// publish must be called with mu held, or before the Store is shared.
func (s *Store) publish(passages []Passage, dim int) {
	if passages == nil {
		passages = []Passage{}
	}
	for t := range s.postings {
		s.postings[t] = roaring.New()
	}
	for i, p := range passages {
		for _, t := range p.Topics {
			s.postings[t].Add(uint32(i))
		}
	}
	for _, bm := range s.postings {
		bm.RunOptimize()
	}
	s.passages = passages
	s.dim = dim
	s.loaded = true
}

// Filter returns the passages tagged with at least one of topics, in corpus
// order, together with the filter key naming that subset. With no topics the
// whole corpus is returned under AllFilterKey.
func (s *Store) Filter(ctx context.Context, topics []Topic) (string, []Passage, error) {
	passages, err := s.Load(ctx)
	if err != nil {
		return "", nil, err
	}

	topics = dedupe(topics)
	if len(topics) == 0 {
		return AllFilterKey, passages, nil
	}

	s.mu.Lock()
	bitmaps := make([]*roaring.Bitmap, len(topics))
	for i, t := range topics {
		bitmaps[i] = s.postings[t]
	}
	s.mu.Unlock()

	matched := roaring.FastOr(bitmaps...)
	subset := make([]Passage, 0, matched.GetCardinality())
	it := matched.Iterator()
	for it.HasNext() {
		subset = append(subset, passages[it.Next()])
	}
	return FilterKey(topics), subset, nil
}

// Dimension returns the embedding dimension, 0 before load or for an empty corpus.
func (s *Store) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// Stats reports corpus statistics without triggering a load.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Loaded:      s.loaded,
		Passages:    len(s.passages),
		Dimension:   s.dim,
		TopicCounts: make(map[string]int),
	}
	if !s.loaded {
		return st
	}
	for t, bm := range s.postings {
		if n := bm.GetCardinality(); n > 0 {
			st.TopicCounts[Topic(t).String()] = int(n)
		}
	}
	for _, p := range s.passages {
		if len(p.Topics) == 0 {
			st.Untagged++
		}
	}
	return st
}
