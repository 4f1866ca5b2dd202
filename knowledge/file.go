package knowledge

import (
	"fmt"

	"github.com/hqta1110/vnrag/codec"
)

// record is the on-disk shape of one passage.
type record struct {
	Text      string    `json:"text"`
	Fields    []string  `json:"fields,omitempty"`
	Domains   []string  `json:"domains,omitempty"`
	Topics    []string  `json:"topics,omitempty"`
	Embedding []float32 `json:"embedding"`
}

func (r *record) tags() []string {
	switch {
	case len(r.Fields) > 0:
		return r.Fields
	case len(r.Domains) > 0:
		return r.Domains
	default:
		return r.Topics
	}
}

// Decode parses a knowledge file, compressed or not.
// Unknown topic tags are dropped. All embeddings must share one dimension.
func Decode(data []byte, c codec.Codec) ([]Passage, error) {
	if c == nil {
		c = codec.Default
	}
	raw, err := decompress(data)
	if err != nil {
		return nil, err
	}

	var records []record
	if err := c.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("knowledge: decode: %w", err)
	}

	passages := make([]Passage, len(records))
	for i := range records {
		r := &records[i]
		passages[i] = Passage{
			Text:      r.Text,
			Topics:    ParseTopics(r.tags()),
			Embedding: r.Embedding,
		}
	}
	if _, err := checkDimensions(passages); err != nil {
		return nil, err
	}
	return passages, nil
}

// Encode renders passages as a knowledge file using compression comp.
func Encode(passages []Passage, c codec.Codec, comp Compression) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	records := make([]record, len(passages))
	for i, p := range passages {
		records[i] = record{
			Text:      p.Text,
			Fields:    TopicNames(p.Topics),
			Embedding: p.Embedding,
		}
	}
	data, err := c.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("knowledge: encode: %w", err)
	}
	return compress(data, comp)
}

// checkDimensions returns the shared embedding dimension, 0 for no passages.
func checkDimensions(passages []Passage) (int, error) {
	if len(passages) == 0 {
		return 0, nil
	}
	dim := len(passages[0].Embedding)
	for i, p := range passages {
		if len(p.Embedding) != dim || dim == 0 {
			return 0, &ErrDimensionMismatch{Index: i, Expected: dim, Actual: len(p.Embedding)}
		}
	}
	return dim, nil
}
