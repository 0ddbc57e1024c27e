package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/kbsearch-mcp/internal/embedder"
	"github.com/dshills/kbsearch-mcp/internal/engine"
	"github.com/dshills/kbsearch-mcp/internal/f16"
	"github.com/dshills/kbsearch-mcp/internal/store"
	"github.com/dshills/kbsearch-mcp/pkg/types"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := types.DefaultConfig()
	cfg.EmbeddingDim = 32

	st, err := store.NewSQLiteStore(":memory:", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	entries := []types.Entry{
		{ID: 1, Category: "Dart", Question: "What is Dart?", Answer: "Dart is a language."},
		{ID: 2, Category: "Flutter", Question: "What is Flutter?", Answer: "Flutter is a UI toolkit."},
	}
	require.NoError(t, st.InsertEntries(context.Background(), entries))

	emb := embedder.NewLocalProvider(32, nil)
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		vec, err := emb.Embed(context.Background(), e.Question)
		require.NoError(t, err)
		vectors[i] = vec
	}

	eng := engine.NewEngine(cfg, st, emb, f16.Encode(vectors))
	require.NoError(t, eng.Initialize(context.Background()))

	return NewServerWithEngine(eng)
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestHandleSearchKB(t *testing.T) {
	s := setupTestServer(t)

	result, err := s.handleSearchKB(context.Background(), callRequest(map[string]interface{}{
		"query": "dart",
		"limit": float64(3),
	}))
	require.NoError(t, err)
	require.NotNil(t, result)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var response struct {
		Query   string `json:"query"`
		Total   int    `json:"total"`
		Results []struct {
			ID       int64   `json:"id"`
			Question string  `json:"question"`
			Score    float64 `json:"score"`
			Method   string  `json:"method"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &response))

	assert.Equal(t, "dart", response.Query)
	require.Positive(t, response.Total)
	assert.Equal(t, int64(1), response.Results[0].ID)
	assert.Equal(t, "heuristic", response.Results[0].Method)
}

func TestHandleSearchKBValidation(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	_, err := s.handleSearchKB(ctx, callRequest(map[string]interface{}{}))
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)

	_, err = s.handleSearchKB(ctx, callRequest(map[string]interface{}{
		"query": "dart",
		"limit": float64(999),
	}))
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleKBStatus(t *testing.T) {
	s := setupTestServer(t)

	result, err := s.handleKBStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var response struct {
		EntryCount  int  `json:"entry_count"`
		Initialized bool `json:"initialized"`
	}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &response))
	assert.Equal(t, 2, response.EntryCount)
	assert.True(t, response.Initialized)
}

func TestExpandHome(t *testing.T) {
	path, err := expandHome("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", path)

	path, err = expandHome("~/kb")
	require.NoError(t, err)
	assert.NotContains(t, path, "~")
}
