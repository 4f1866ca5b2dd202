package vnrag

import (
	"context"
	"testing"

	"github.com/hqta1110/vnrag/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeToolResponse(t *testing.T, out string) toolResponse {
	t.Helper()
	var resp toolResponse
	require.NoError(t, codec.JSON{}.Unmarshal([]byte(out), &resp))
	return resp
}

func TestToolCall(t *testing.T) {
	tool := NewTool(NewRetriever(newTestContext(t), constEmbedder([]float32{1, 0}, nil)))
	ctx := context.Background()

	t.Run("filtered", func(t *testing.T) {
		resp := decodeToolResponse(t, tool.Call(ctx, `{"query": "capital", "fields": ["geography"]}`))
		assert.Empty(t, resp.Error)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "Paris is the capital of France", resp.Results[0].Text)
		assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-6)
	})

	t.Run("domains alias", func(t *testing.T) {
		resp := decodeToolResponse(t, tool.Call(ctx, `{"query": "capital", "domains": ["history"]}`))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "Hanoi is the capital of Vietnam", resp.Results[0].Text)
	})

	t.Run("unknown fields search everything", func(t *testing.T) {
		light := NewTool(NewRetriever(newTestContext(t), constEmbedder([]float32{0, 1}, nil))).WithToolK(1)
		resp := decodeToolResponse(t, light.Call(ctx, `{"query": "light", "fields": ["Science", "biology"]}`))
		assert.Empty(t, resp.Error)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "Photosynthesis converts light", resp.Results[0].Text)
	})

	t.Run("bounded by k", func(t *testing.T) {
		resp := decodeToolResponse(t, tool.WithToolK(1).Call(ctx, `{"query": "capital"}`))
		assert.Len(t, resp.Results, 1)
	})

	t.Run("bad arguments", func(t *testing.T) {
		out := tool.Call(ctx, `{"query": `)
		resp := decodeToolResponse(t, out)
		assert.Contains(t, resp.Error, "parse arguments")
		assert.NotNil(t, resp.Results)
		assert.Contains(t, out, `"results":[]`)
	})

	t.Run("empty query", func(t *testing.T) {
		resp := decodeToolResponse(t, tool.Call(ctx, `{"query": ""}`))
		assert.Equal(t, ErrEmptyQuery.Error(), resp.Error)
		assert.Empty(t, resp.Results)
	})
}

func TestToolExecute(t *testing.T) {
	tool := NewTool(NewRetriever(newTestContext(t), constEmbedder([]float32{1, 0}, nil)))

	out, err := tool.Execute(context.Background(), map[string]any{
		"query":  "capital",
		"fields": []any{"geography", 7},
	})
	require.NoError(t, err)
	resp := decodeToolResponse(t, out)
	assert.Len(t, resp.Results, 2)

	out, err = tool.Execute(context.Background(), map[string]any{"query": "q", "fields": "law"})
	require.NoError(t, err)
	assert.Empty(t, decodeToolResponse(t, out).Results)
}

func TestToolSchema(t *testing.T) {
	tool := NewTool(nil)
	assert.Equal(t, "retrieval", tool.Name())
	assert.Contains(t, tool.Description(), "geography")

	params := tool.Parameters()
	assert.Equal(t, []string{"query"}, params["required"])
	props := params["properties"].(map[string]any)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "fields")
}
