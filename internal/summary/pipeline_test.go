package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/llmclient"
	"chatmemory-gateway/internal/store"
)

func fakeLLMServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func insertTurns(t *testing.T, st store.Store, n int, scene store.Scene) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, _, err := st.InsertTurn(context.Background(), store.Turn{
			UserID: "u1", Channel: "c1", RoundNumber: i,
			UserMsg: "hi", AssistantMsg: "hello", SceneType: scene,
		})
		require.NoError(t, err)
	}
}

func TestCheckAndGenerate_TriggersAtWindowSize(t *testing.T) {
	srv := fakeLLMServer(t, "They said hello.")
	st := store.NewMemoryStore()
	insertTurns(t, st, 5, store.SceneDaily)

	p := NewPipeline(st, llmclient.NewClient(nil), config.SummaryConfig{
		BaseURL: srv.URL, Model: "test-model", WindowSize: 5, MaxTokens: 200, Temperature: 0.3,
	})
	p.CheckAndGenerate(context.Background(), "u1", "c1")

	summaries, err := st.GetRecentSummaries(context.Background(), "u1", "c1", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "They said hello.", summaries[0].Text)
	assert.Equal(t, 1, summaries[0].StartRound)
	assert.Equal(t, 5, summaries[0].EndRound)
}

func TestCheckAndGenerate_NoOpBelowWindowSize(t *testing.T) {
	srv := fakeLLMServer(t, "unused")
	st := store.NewMemoryStore()
	insertTurns(t, st, 3, store.SceneDaily)

	p := NewPipeline(st, llmclient.NewClient(nil), config.SummaryConfig{
		BaseURL: srv.URL, WindowSize: 5,
	})
	p.CheckAndGenerate(context.Background(), "u1", "c1")

	summaries, err := st.GetRecentSummaries(context.Background(), "u1", "c1", 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestDominantScene_PicksPlurality(t *testing.T) {
	turns := []store.Turn{
		{SceneType: store.SceneDaily}, {SceneType: store.ScenePlot}, {SceneType: store.ScenePlot},
	}
	assert.Equal(t, store.ScenePlot, dominantScene(turns))
}
