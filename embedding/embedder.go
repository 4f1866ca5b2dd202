package embedding

import (
	"context"
	"fmt"
)

// Embedder turns text into vectors.
type Embedder interface {
	// EmbedOne returns the embedding of text, or an empty vector on failure.
	EmbedOne(ctx context.Context, text string) []float32
	// EmbedMany returns one embedding per text, in input order, or an error.
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Func adapts a single-text function to the Embedder interface.
// EmbedMany calls it sequentially and fails on the first empty vector.
type Func func(ctx context.Context, text string) []float32

func (f Func) EmbedOne(ctx context.Context, text string) []float32 {
	return f(ctx, text)
}

func (f Func) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := f(ctx, text)
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: text %d", ErrEmptyEmbedding, i)
		}
		out[i] = v
	}
	return out, nil
}
