package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/retrieval"
	"chatmemory-gateway/internal/scene"
	"chatmemory-gateway/internal/store"
	"chatmemory-gateway/internal/synonym"
)

func newTestRetrievalEngine(st store.Store) *retrieval.Engine {
	cfg := config.RetrievalConfig{Deadline: 3 * time.Second, RerankTimeout: 5 * time.Second, MaxSynonyms: 5}
	return retrieval.NewEngine(st, nil, synonym.NewExpander(), nil, cfg)
}

func TestSearchMemoryTool_FindsKeywordMatch(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, err := st.InsertTurn(context.Background(), store.Turn{
		UserID: "u1", Channel: "c1", RoundNumber: 1,
		UserMsg: "tell me about the ancient castle", AssistantMsg: "sure, it's old", SceneType: store.SceneDaily,
	})
	require.NoError(t, err)

	tool := NewSearchMemoryTool(newTestRetrievalEngine(st), st, scene.NewDetector())
	ctx := WithUserID(context.Background(), "u1")
	raw, _ := json.Marshal(map[string]any{"query": "castle", "channel": "c1"})

	res, err := tool.Call(ctx, raw)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "castle")
}

func TestSearchMemoryTool_NoMatchesReturnsMessage(t *testing.T) {
	st := store.NewMemoryStore()
	tool := NewSearchMemoryTool(newTestRetrievalEngine(st), st, scene.NewDetector())
	raw, _ := json.Marshal(map[string]any{"query": "nonexistent", "channel": "c1"})

	res, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "No matching memories")
}

func TestSearchMemoryTool_MissingQueryIsError(t *testing.T) {
	st := store.NewMemoryStore()
	tool := NewSearchMemoryTool(newTestRetrievalEngine(st), st, scene.NewDetector())
	res, err := tool.Call(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestInitContextTool_ReturnsRecentTurnsAndSummaries(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, err := st.InsertTurn(context.Background(), store.Turn{
		UserID: "u1", Channel: "c1", RoundNumber: 1,
		UserMsg: "hi", AssistantMsg: "hello", SceneType: store.SceneDaily,
	})
	require.NoError(t, err)

	tool := NewInitContextTool(st)
	ctx := WithUserID(context.Background(), "u1")
	raw, _ := json.Marshal(map[string]any{"channel": "c1"})

	res, err := tool.Call(ctx, raw)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "hello")
}

func TestInitContextTool_EmptyHistoryReturnsMessage(t *testing.T) {
	st := store.NewMemoryStore()
	tool := NewInitContextTool(st)
	res, err := tool.Call(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].Text, "No prior context")
}
