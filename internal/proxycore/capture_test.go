package proxycore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/background"
	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/embedding"
	"chatmemory-gateway/internal/llmclient"
	"chatmemory-gateway/internal/store"
	"chatmemory-gateway/internal/summary"
)

func TestStripCitations(t *testing.T) {
	text := "The dragon appeared. [[used:1f2e3d4c-5b6a-4798-8a1b-0c1d2e3f4a5b]] It was red."
	cleaned, ids := stripCitations(text)
	assert.Equal(t, "The dragon appeared.  It was red.", cleaned)
	require.Len(t, ids, 1)
	assert.Equal(t, "1f2e3d4c-5b6a-4798-8a1b-0c1d2e3f4a5b", ids[0])
}

func TestStripCitations_NoMarkersLeavesTextUnchanged(t *testing.T) {
	cleaned, ids := stripCitations("nothing to see here")
	assert.Equal(t, "nothing to see here", cleaned)
	assert.Empty(t, ids)
}

func TestCapturer_Capture_PersistsTurnAndEmbedding(t *testing.T) {
	st := store.NewMemoryStore()

	embedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer embedSrv.Close()
	embedder := embedding.NewClient(config.EmbeddingConfig{BaseURL: embedSrv.URL, Model: "test-embed", Timeout: 5 * time.Second}, embedSrv.Client())

	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"a short summary"}}]}`))
	}))
	defer llmSrv.Close()
	pipeline := summary.NewPipeline(st, llmclient.NewClient(llmSrv.Client()), config.SummaryConfig{
		BaseURL: llmSrv.URL, Model: "test-model", WindowSize: 5,
	})

	exec := background.NewExecutor(4)
	capturer := NewCapturer(st, embedder, pipeline, exec)

	capturer.Capture("u1", "c1", "hello", "hi there [[used:1f2e3d4c-5b6a-4798-8a1b-0c1d2e3f4a5b]]", store.SceneDaily)
	exec.Wait()

	turns, _, err := st.FuzzySearch(context.Background(), "hi", "c1", store.SceneDaily, 10, 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hi there ", turns[0].AssistantMsg)
	assert.NotNil(t, turns[0].Embedding)
}
