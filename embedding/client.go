package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Client calls the hosted embedding service.
type Client struct {
	opts    Options
	url     string
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Embedder = (*Client)(nil)

// New creates a Client. BaseURL is required.
func New(optFns ...func(o *Options)) (*Client, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	opts.applyDefaults()

	c := &Client{
		opts:   opts,
		url:    strings.TrimSuffix(opts.BaseURL, "/") + "/" + strings.TrimPrefix(opts.EndpointPath, "/"),
		logger: opts.Logger,
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Workers)
	}
	return c, nil
}

// Options returns the effective options.
func (c *Client) Options() Options {
	return c.opts
}

type request struct {
	Model          string `json:"model"`
	Input          any    `json:"input"`
	EncodingFormat string `json:"encoding_format"`
}

type response struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedOne embeds a single text with one request and no retry.
func (c *Client) EmbedOne(ctx context.Context, text string) []float32 {
	vecs, err := c.post(ctx, text, 1)
	if err != nil {
		c.logger.WarnContext(ctx, "embed query failed", "error", err)
		return []float32{}
	}
	return vecs[0]
}

// EmbedMany embeds texts in batches of Options.BatchSize on at most
// Options.Workers concurrent requests.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	size := c.opts.BatchSize
	numBatches := (len(texts) + size - 1) / size
	results := make([][][]float32, numBatches)

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for b := 0; b < numBatches; b++ {
		start := b * size
		end := min(start+size, len(texts))
		batch := texts[start:end]

		g.Go(func() error {
			vecs, err := c.embedBatch(gctx, b, batch)
			if err != nil {
				return err
			}
			results[b] = vecs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.ErrorContext(ctx, "embed many failed",
			"texts", len(texts),
			"batches", numBatches,
			"error", err,
		)
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for _, vecs := range results {
		out = append(out, vecs...)
	}

	c.logger.InfoContext(ctx, "embed many completed",
		"texts", len(texts),
		"batches", numBatches,
		"duration", time.Since(started),
	)
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, idx int, batch []string) ([][]float32, error) {
	attempts := 0
	vecs, err := backoff.Retry(ctx, func() ([][]float32, error) {
		attempts++
		vecs, err := c.post(ctx, batch, len(batch))
		if errors.Is(err, ErrMalformedResponse) {
			return nil, backoff.Permanent(err)
		}
		return vecs, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.opts.RetryDelay)),
		backoff.WithMaxTries(uint(c.opts.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.WarnContext(ctx, "embedding batch failed, will retry",
				"batch", idx,
				"attempt", attempts,
				"backoff", next,
				"error", err,
			)
		}),
	)
	if err == nil {
		return vecs, nil
	}
	if errors.Is(err, ErrMalformedResponse) || ctx.Err() != nil {
		return nil, fmt.Errorf("batch %d: %w", idx, err)
	}
	return nil, fmt.Errorf("%w: batch %d after %d attempts: %w", ErrRetriesExhausted, idx, attempts, err)
}

// post sends one request and expects exactly want embeddings back.
func (c *Client) post(ctx context.Context, input any, want int) ([][]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := c.opts.Codec.Marshal(request{
		Model:          c.opts.Model,
		Input:          input,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.Credentials.BearerToken)
	req.Header.Set("Token-id", c.opts.Credentials.TokenID)
	req.Header.Set("Token-key", c.opts.Credentials.TokenKey)

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 256)}
	}

	var out response
	if err := c.opts.Codec.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Data) != want {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrMalformedResponse, len(out.Data), want)
	}

	vecs := make([][]float32, want)
	for i, d := range out.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", ErrMalformedResponse, i)
		}
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
