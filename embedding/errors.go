package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrRetriesExhausted is returned by EmbedMany when a batch failed on every attempt.
	ErrRetriesExhausted = errors.New("embedding: retries exhausted")

	// ErrMalformedResponse is returned when a 200 response does not have the
	// expected shape. It is never retried.
	ErrMalformedResponse = errors.New("embedding: malformed response")

	// ErrEmptyEmbedding is returned when an embedder produced no vector for a text.
	ErrEmptyEmbedding = errors.New("embedding: empty embedding")

	// ErrMissingBaseURL is returned by New when no service URL is configured.
	ErrMissingBaseURL = errors.New("embedding: base URL is required")
)

// StatusError is a non-200 response from the embedding service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("embedding: unexpected status %d: %s", e.StatusCode, e.Body)
}
