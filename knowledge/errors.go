package knowledge

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPassages is returned by Build when there is nothing to embed.
	ErrNoPassages = errors.New("knowledge: no passages")
	// ErrUnknownCompression is returned for an unsupported compression name.
	ErrUnknownCompression = errors.New("knowledge: unknown compression")
)

// ErrDimensionMismatch is returned when passages disagree on embedding length.
type ErrDimensionMismatch struct {
	Index    int
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("knowledge: passage %d has embedding dimension %d, expected %d", e.Index, e.Actual, e.Expected)
}
