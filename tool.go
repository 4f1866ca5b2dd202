package vnrag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hqta1110/vnrag/codec"
	"github.com/hqta1110/vnrag/knowledge"
)

// ToolName is the name agents call the retrieval tool by.
const ToolName = "retrieval"

// Tool exposes a Retriever to an LLM agent. It never fails: errors are
// reported inside the JSON payload so the agent can read them.
type Tool struct {
	retriever *Retriever
	k         int
	codec     codec.Codec
}

// NewTool wraps r. Calls return at most DefaultToolK passages.
func NewTool(r *Retriever) *Tool {
	return &Tool{retriever: r, k: DefaultToolK, codec: codec.Default}
}

// WithToolK returns a copy of t returning at most k passages.
func (t *Tool) WithToolK(k int) *Tool {
	c := *t
	c.k = k
	return &c
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "Search the knowledge base for passages relevant to a query. " +
		"Optionally restrict the search to topics: " + strings.Join(knowledge.TopicNames(knowledge.Vocabulary()), ", ") + "."
}

// Parameters returns the JSON schema of the tool arguments.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Question or keywords to search for",
			},
			"fields": map[string]any{
				"type":        "array",
				"description": "Topics to restrict the search to; empty searches everything",
				"items": map[string]any{
					"type": "string",
					"enum": knowledge.TopicNames(knowledge.Vocabulary()),
				},
			},
		},
		"required": []string{"query"},
	}
}

type toolArgs struct {
	Query   string   `json:"query"`
	Fields  []string `json:"fields"`
	Domains []string `json:"domains"`
}

type toolResponse struct {
	Results Results `json:"results"`
	Error   string  `json:"error,omitempty"`
}

// Call runs a retrieval from a JSON argument object and returns a JSON
// response. "domains" is accepted as an alias of "fields".
func (t *Tool) Call(ctx context.Context, argsJSON string) string {
	var args toolArgs
	if err := t.codec.Unmarshal([]byte(argsJSON), &args); err != nil {
		return t.respond(nil, fmt.Errorf("parse arguments: %w", err))
	}
	return t.respond(t.run(ctx, args))
}

// Execute is Call for agents that pass already decoded arguments. The
// error is non-nil only when the response cannot be encoded.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (string, error) {
	var a toolArgs
	a.Query, _ = args["query"].(string)
	a.Fields = stringList(args["fields"])
	a.Domains = stringList(args["domains"])

	out := t.respond(t.run(ctx, a))
	if out == "" {
		return "", errors.New("encode tool response")
	}
	return out, nil
}

func (t *Tool) run(ctx context.Context, args toolArgs) (Results, error) {
	fields := args.Fields
	if len(fields) == 0 {
		fields = args.Domains
	}
	return t.retriever.Retrieve(ctx, args.Query, WithK(t.k), WithTopicNames(fields...))
}

func (t *Tool) respond(results Results, err error) string {
	resp := toolResponse{Results: results}
	if resp.Results == nil {
		resp.Results = Results{}
	}
	if err != nil {
		resp.Results = Results{}
		resp.Error = err.Error()
	}
	data, err := t.codec.Marshal(resp)
	if err != nil {
		return ""
	}
	return string(data)
}

func stringList(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	}
	return nil
}
