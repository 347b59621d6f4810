package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatmemory-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, fn http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(fn)
	t.Cleanup(ts.Close)
	return ts
}

func TestEmbed_SendsBearerAuthorization(t *testing.T) {
	ts := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body embedReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Input, 1)
		resp := embedResp{Data: []struct {
			Embedding []float32 `json:"embedding"`
		}{{Embedding: []float32{0.1, 0.2}}}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	c := NewClient(config.EmbeddingConfig{BaseURL: ts.URL, Model: "m", APIKey: "secret", Timeout: time.Second}, nil)
	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestEmbed_TruncatesLongInput(t *testing.T) {
	var gotInput string
	ts := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body embedReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotInput = body.Input[0]
		resp := embedResp{Data: []struct {
			Embedding []float32 `json:"embedding"`
		}{{Embedding: []float32{1}}}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	c := NewClient(config.EmbeddingConfig{BaseURL: ts.URL, Model: "m", Timeout: time.Second}, nil)
	_, err := c.Embed(context.Background(), strings.Repeat("a", 5000))
	require.NoError(t, err)
	assert.Len(t, []rune(gotInput), maxInputChars)
}

func TestEmbed_NonOKStatusIsError(t *testing.T) {
	ts := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	c := NewClient(config.EmbeddingConfig{BaseURL: ts.URL, Model: "m", Timeout: time.Second}, nil)
	_, err := c.Embed(context.Background(), "hi")
	assert.Error(t, err)
}

func TestEmbed_EmptyDataIsError(t *testing.T) {
	ts := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	c := NewClient(config.EmbeddingConfig{BaseURL: ts.URL, Model: "m", Timeout: time.Second}, nil)
	_, err := c.Embed(context.Background(), "hi")
	assert.Error(t, err)
}
