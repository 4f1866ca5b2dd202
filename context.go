package vnrag

import (
	"github.com/hqta1110/vnrag/indexcache"
	"github.com/hqta1110/vnrag/knowledge"
)

// RetrievalContext owns the passage corpus and the index cache built over it.
// Independent contexts share nothing, so tests and multi-corpus processes
// can hold several at once.
type RetrievalContext struct {
	store *knowledge.Store
	cache *indexcache.Cache
}

// NewRetrievalContext creates a context over store with a fresh index cache.
func NewRetrievalContext(store *knowledge.Store, optFns ...func(o *indexcache.Options)) *RetrievalContext {
	return &RetrievalContext{
		store: store,
		cache: indexcache.New(optFns...),
	}
}

// Store returns the knowledge store.
func (rc *RetrievalContext) Store() *knowledge.Store { return rc.store }

// Cache returns the index cache.
func (rc *RetrievalContext) Cache() *indexcache.Cache { return rc.cache }

// Stats combines corpus and cache statistics.
type Stats struct {
	Knowledge knowledge.Stats  `json:"knowledge"`
	Cache     indexcache.Stats `json:"cache"`
}

// Stats returns a snapshot of both caches.
func (rc *RetrievalContext) Stats() Stats {
	return Stats{
		Knowledge: rc.store.Stats(),
		Cache:     rc.cache.Stats(),
	}
}
