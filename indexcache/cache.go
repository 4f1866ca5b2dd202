package indexcache

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hqta1110/vnrag/distance"
	"github.com/hqta1110/vnrag/index"
	"github.com/hqta1110/vnrag/knowledge"
	"golang.org/x/sync/singleflight"
)

// Key identifies a cached index.
type Key struct {
	FilterKey string
	Metric    distance.Metric
	Size      int
}

// String renders the key as "<filter>_<metric>_<size>".
func (k Key) String() string {
	return fmt.Sprintf("%s_%s_%d", k.FilterKey, k.Metric, k.Size)
}

// Entry is a built index plus the passages its positions refer to.
// Position i of Index is Passages[i].
type Entry struct {
	Key       Key
	Index     index.Index
	Passages  []knowledge.Passage
	BuiltAt   time.Time
	BuildTime time.Duration
}

// Passage returns the passage at index position id.
func (e *Entry) Passage(id int) (knowledge.Passage, bool) {
	if id < 0 || id >= len(e.Passages) {
		return knowledge.Passage{}, false
	}
	return e.Passages[id], true
}

// Options configures a Cache.
type Options struct {
	// Capacity bounds the number of entries; 0 means unbounded.
	Capacity int
	Builder  Builder
	Logger   *slog.Logger
}

// EntryInfo describes one cached entry.
type EntryInfo struct {
	Key       string        `json:"key"`
	Kind      string        `json:"kind"`
	Vectors   int           `json:"vectors"`
	BuildTime time.Duration `json:"build_time"`
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int         `json:"entries"`
	Capacity  int         `json:"capacity"`
	Hits      int64       `json:"hits"`
	Misses    int64       `json:"misses"`
	Builds    int64       `json:"builds"`
	Evictions int64       `json:"evictions"`
	Items     []EntryInfo `json:"items"`
}

// Cache maps keys to built indexes. It is safe for concurrent use.
type Cache struct {
	opts Options

	mu      sync.Mutex
	items   map[Key]*list.Element
	lru     *list.List
	flights singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	builds    atomic.Int64
	evictions atomic.Int64
}

// New creates an empty Cache.
func New(optFns ...func(o *Options)) *Cache {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Builder == nil {
		opts.Builder = DefaultBuilder()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Capacity < 0 {
		opts.Capacity = 0
	}
	return &Cache{
		opts:  opts,
		items: make(map[Key]*list.Element),
		lru:   list.New(),
	}
}

// Get returns the entry for (filterKey, metric, len(passages)), building it
// from passages if it is not cached. Empty passages yield a nil entry.
// A caller whose ctx ends stops waiting; the build itself runs to completion
// and is published for later callers.
func (c *Cache) Get(ctx context.Context, filterKey string, passages []knowledge.Passage, metric distance.Metric) (*Entry, error) {
	if len(passages) == 0 {
		return nil, nil
	}
	key := Key{FilterKey: filterKey, Metric: metric, Size: len(passages)}

	if e, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return e, nil
	}
	c.misses.Add(1)

	// Shared builds ignore the cancellation of the caller that started them.
	buildCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key.String(), func() (any, error) {
		if e, ok := c.lookup(key); ok {
			return e, nil
		}
		e, err := c.build(buildCtx, key, passages)
		if err != nil {
			return nil, err
		}
		c.publish(e)
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	}
}

func (c *Cache) lookup(key Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(*Entry), true
}

func (c *Cache) publish(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[e.Key]; ok {
		c.lru.MoveToFront(el)
		return
	}
	c.items[e.Key] = c.lru.PushFront(e)

	for c.opts.Capacity > 0 && c.lru.Len() > c.opts.Capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.items, oldest.Value.(*Entry).Key)
		c.evictions.Add(1)
	}
}

func (c *Cache) build(ctx context.Context, key Key, passages []knowledge.Passage) (*Entry, error) {
	started := time.Now()
	dim := len(passages[0].Embedding)
	if dim == 0 {
		return nil, &index.ErrDimensionMismatch{Expected: 1, Actual: 0}
	}

	vectors := make([][]float32, len(passages))
	for i, p := range passages {
		vectors[i] = p.Embedding
	}
	matrix, err := index.Stack(vectors, dim)
	if err != nil {
		return nil, err
	}
	if key.Metric == distance.MetricCosine {
		index.NormalizeRows(matrix, dim)
	}

	idx, err := c.opts.Builder.Build(ctx, key.Metric, matrix, dim)
	c.builds.Add(1)
	if err != nil {
		c.opts.Logger.ErrorContext(ctx, "index build failed", "key", key.String(), "error", err)
		return nil, fmt.Errorf("indexcache: build %s: %w", key, err)
	}

	e := &Entry{
		Key:       key,
		Index:     idx,
		Passages:  passages,
		BuiltAt:   time.Now(),
		BuildTime: time.Since(started),
	}
	c.opts.Logger.InfoContext(ctx, "index built",
		"key", key.String(),
		"kind", idx.Kind().String(),
		"vectors", idx.Len(),
		"dimension", dim,
		"duration", e.BuildTime,
	)
	return e, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters and entries, most recently
// used first.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	items := make([]EntryInfo, 0, c.lru.Len())
	for el := c.lru.Front(); el != nil; el = el.Next() {
		e := el.Value.(*Entry)
		items = append(items, EntryInfo{
			Key:       e.Key.String(),
			Kind:      e.Index.Kind().String(),
			Vectors:   e.Index.Len(),
			BuildTime: e.BuildTime,
		})
	}
	c.mu.Unlock()

	return Stats{
		Entries:   len(items),
		Capacity:  c.opts.Capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Builds:    c.builds.Load(),
		Evictions: c.evictions.Load(),
		Items:     items,
	}
}
