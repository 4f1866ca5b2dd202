// Package vnrag is an embedding-backed passage retrieval library for a
// Vietnamese question-answering agent.
//
// A RetrievalContext owns the two process-wide caches: the knowledge Store
// (the passage corpus, loaded once) and the index Cache (one similarity
// index per topic filter, metric and corpus size). A Retriever combines a
// RetrievalContext with an embedding client and answers queries.
//
// # Quick Start
//
//	emb, _ := embedding.New(func(o *embedding.Options) {
//	    o.BaseURL = os.Getenv("BASE_URL")
//	})
//	store := knowledge.NewStore(blobstore.NewLocalStore("./data"))
//	rc := vnrag.NewRetrievalContext(store)
//	r := vnrag.NewRetriever(rc, emb)
//
//	results, err := r.Retrieve(ctx, "Thủ đô của Việt Nam là gì?",
//	    vnrag.WithTopicNames("geography", "history"),
//	    vnrag.WithK(5),
//	)
//	for _, res := range results {
//	    fmt.Println(res.Score, res.Text)
//	}
//
// # Failure Model
//
// Retrieve never panics. Degenerate input (an embedding failure, a zero
// query vector under cosine, an empty corpus or filter subset) produces an
// empty result and a nil error. Anything unexpected is returned as an error;
// panics are recovered and wrapped in ErrInternal.
//
// Tool wraps a Retriever for LLM tool calling and reports failures inside
// its JSON payload instead of returning errors.
//
// # Index Selection
//
// Subsets below 5000 passages get an exact flat index. Larger subsets get an
// IVF index with floor(sqrt(n)) lists, trained on at most 100000 vectors and
// probing min(32, nlist) lists per query.
package vnrag
