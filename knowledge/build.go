package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/hqta1110/vnrag/blobstore"
	"github.com/hqta1110/vnrag/codec"
	"github.com/hqta1110/vnrag/embedding"
)

// Chunk is a text awaiting embedding.
type Chunk struct {
	Text   string
	Topics []Topic
}

// BuildOptions configures Build.
type BuildOptions struct {
	// Name is the destination blob. Its extension selects compression
	// unless Compression is set explicitly.
	Name        string
	Compression *Compression
	Codec       codec.Codec
	Logger      *slog.Logger
}

// BuildResult summarizes a finished build.
type BuildResult struct {
	Name        string        `json:"name"`
	Passages    int           `json:"passages"`
	Dimension   int           `json:"dimension"`
	Bytes       int           `json:"bytes"`
	Compression string        `json:"compression"`
	Duration    time.Duration `json:"duration"`
}

// Build embeds every chunk and writes the knowledge file to dst.
// Nothing is written unless every chunk was embedded.
func Build(ctx context.Context, emb embedding.Embedder, chunks []Chunk, dst blobstore.BlobStore, optFns ...func(o *BuildOptions)) (*BuildResult, error) {
	opts := BuildOptions{Name: DefaultFileName}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	comp := CompressionFor(opts.Name)
	if opts.Compression != nil {
		comp = *opts.Compression
	}

	if len(chunks) == 0 {
		return nil, ErrNoPassages
	}

	started := time.Now()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vecs, err := emb.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed %d chunks: %w", len(chunks), err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("knowledge: got %d embeddings for %d chunks", len(vecs), len(chunks))
	}

	passages := make([]Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = Passage{Text: c.Text, Topics: dedupe(c.Topics), Embedding: vecs[i]}
	}
	dim, err := checkDimensions(passages)
	if err != nil {
		return nil, err
	}

	data, err := Encode(passages, opts.Codec, comp)
	if err != nil {
		return nil, err
	}
	if err := dst.Put(ctx, opts.Name, data); err != nil {
		return nil, fmt.Errorf("knowledge: write %q: %w", opts.Name, err)
	}

	res := &BuildResult{
		Name:        opts.Name,
		Passages:    len(passages),
		Dimension:   dim,
		Bytes:       len(data),
		Compression: comp.String(),
		Duration:    time.Since(started),
	}
	opts.Logger.InfoContext(ctx, "knowledge file built",
		"name", res.Name,
		"passages", res.Passages,
		"dimension", res.Dimension,
		"bytes", res.Bytes,
		"compression", res.Compression,
		"duration", res.Duration,
	)
	return res, nil
}

// LoadChunks reads a chunk directory laid out as
// <prefix>/<topic>[-<topic>...]/<name>.txt. The directory name supplies the
// topics, split on "-". Blank files and files outside a topic directory
// are skipped.
func LoadChunks(ctx context.Context, src blobstore.BlobStore, prefix string) ([]Chunk, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	names, err := src.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("knowledge: list chunks: %w", err)
	}

	var chunks []Chunk
	for _, name := range names {
		if path.Ext(name) != ".txt" {
			continue
		}
		dir, _, ok := strings.Cut(strings.TrimPrefix(name, prefix), "/")
		if !ok {
			continue
		}

		data, err := blobstore.ReadAll(ctx, src, name)
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Text:   text,
			Topics: ParseTopics(strings.Split(dir, "-")),
		})
	}
	return chunks, nil
}
