package proxycore

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/autoinject"
	"chatmemory-gateway/internal/background"
	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/embedding"
	"chatmemory-gateway/internal/llmclient"
	"chatmemory-gateway/internal/retrieval"
	"chatmemory-gateway/internal/scene"
	"chatmemory-gateway/internal/store"
	"chatmemory-gateway/internal/summary"
	"chatmemory-gateway/internal/synonym"
)

func newTestHandler(t *testing.T, upstreamURL string) (*Handler, *background.Executor) {
	t.Helper()
	st := store.NewMemoryStore()
	retrievalCfg := config.RetrievalConfig{Deadline: 3 * time.Second, RerankTimeout: 5 * time.Second, MaxSynonyms: 5}
	retrievalEngine := retrieval.NewEngine(st, nil, synonym.NewExpander(), nil, retrievalCfg)
	inject := autoinject.NewEngine(retrievalEngine, st)

	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"a short summary"}}]}`))
	}))
	t.Cleanup(llmSrv.Close)
	pipeline := summary.NewPipeline(st, llmclient.NewClient(llmSrv.Client()), config.SummaryConfig{
		BaseURL: llmSrv.URL, Model: "test-model", WindowSize: 5,
	})

	exec := background.NewExecutor(4)
	capturer := NewCapturer(st, (*embedding.Client)(nil), pipeline, exec)

	backends := config.BackendTable{
		Aliases: map[string]string{"gpt-test": "backend-a"},
		Backends: map[string]config.Backend{
			"backend-a": {BaseURL: upstreamURL, UpstreamName: "upstream-model"},
		},
	}

	h := NewHandler(backends, "", scene.NewDetector(), inject, capturer)
	return h, exec
}

func TestHandler_NonStreaming_HappyPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"message":{"content":"hello back"}}]}`))
	}))
	defer upstream.Close()

	h, exec := newTestHandler(t, upstream.URL)

	body := `{"model":"gpt-test","messages":[{"role":"user","content":"good morning"}],"stream":false}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	exec.Wait()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello back")
}

func TestHandler_UnknownModel_Returns502(t *testing.T) {
	h, _ := newTestHandler(t, "http://unused")

	body := `{"model":"does-not-exist","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandler_FakeStreamPrefix_EmitsSSE(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","created":1,"model":"m","choices":[{"message":{"content":"ab"},"finish_reason":"stop"}]}`))
	}))
	defer upstream.Close()

	h, exec := newTestHandler(t, upstream.URL)

	body := `{"model":"fake-stream/gpt-test","messages":[{"role":"user","content":"hi"}],"stream":false}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	exec.Wait()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
}
