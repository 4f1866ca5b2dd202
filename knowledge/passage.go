package knowledge

// Passage is one stored chunk of source text.
// Passages are never modified after a Store has loaded them.
type Passage struct {
	Text      string
	Topics    []Topic
	Embedding []float32
}
