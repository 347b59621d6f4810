package proxycore

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/config"
)

func upstreamFakeStreamServer(t *testing.T, respBody string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func parseSSEChunks(t *testing.T, raw string) []streamChunk {
	t.Helper()
	var chunks []streamChunk
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			continue
		}
		var c streamChunk
		require.NoError(t, json.Unmarshal([]byte(data), &c))
		chunks = append(chunks, c)
	}
	return chunks
}

func TestRelayFakeStreaming_PlainText_OrderAndTermination(t *testing.T) {
	srv := upstreamFakeStreamServer(t, `{
		"id": "chatcmpl-1", "created": 1700000000, "model": "gpt-x",
		"choices": [{"message": {"content": "hello world", "reasoning_content": "because"}, "finish_reason": "stop"}]
	}`)
	backend := config.Backend{BaseURL: srv.URL}
	rec := httptest.NewRecorder()

	result, err := RelayFakeStreaming(context.Background(), srv.Client(), backend, map[string]any{"model": "x"}, rec)
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.AssistantText)
	assert.Equal(t, "because", result.ReasoningText)

	body := rec.Body.String()
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]"))

	chunks := parseSSEChunks(t, body)
	require.NotEmpty(t, chunks)
	first := chunks[0].Choices[0].Delta
	assert.Equal(t, "assistant", first.Role)
	require.NotNil(t, first.Content)
	assert.Equal(t, "", *first.Content)

	last := chunks[len(chunks)-1].Choices[0]
	require.NotNil(t, last.FinishReason)
	assert.Equal(t, "stop", *last.FinishReason)

	var reassembledReasoning, reassembledContent strings.Builder
	for _, c := range chunks[1 : len(chunks)-1] {
		d := c.Choices[0].Delta
		reassembledReasoning.WriteString(d.ReasoningContent)
		if d.Content != nil {
			reassembledContent.WriteString(*d.Content)
		}
	}
	assert.Equal(t, "because", reassembledReasoning.String())
	assert.Equal(t, "hello world", reassembledContent.String())
}

func TestRelayFakeStreaming_ToolCalls_FirstChunkHasNullContent(t *testing.T) {
	srv := upstreamFakeStreamServer(t, `{
		"id": "chatcmpl-2", "created": 1700000001, "model": "gpt-x",
		"choices": [{"message": {"tool_calls": [
			{"id": "call_1", "type": "function", "function": {"name": "search_memory", "arguments": "{\"query\":\"dragon\"}"}}
		]}, "finish_reason": "tool_calls"}]
	}`)
	backend := config.Backend{BaseURL: srv.URL}
	rec := httptest.NewRecorder()

	_, err := RelayFakeStreaming(context.Background(), srv.Client(), backend, map[string]any{"model": "x"}, rec)
	require.NoError(t, err)

	body := rec.Body.String()
	chunks := parseSSEChunks(t, body)
	require.Len(t, chunks, 3) // name chunk, arguments chunk, terminal chunk

	nameChunk := chunks[0].Choices[0].Delta
	assert.Equal(t, "assistant", nameChunk.Role)
	assert.Nil(t, nameChunk.Content) // serializes as "content": null, verified below via raw JSON

	require.Len(t, nameChunk.ToolCalls, 1)
	assert.Equal(t, "call_1", nameChunk.ToolCalls[0].ID)
	assert.Equal(t, "function", nameChunk.ToolCalls[0].Type)
	assert.Equal(t, "search_memory", nameChunk.ToolCalls[0].Function.Name)
	assert.Equal(t, "", nameChunk.ToolCalls[0].Function.Arguments)

	argsChunk := chunks[1].Choices[0].Delta
	require.Len(t, argsChunk.ToolCalls, 1)
	assert.Equal(t, `{"query":"dragon"}`, argsChunk.ToolCalls[0].Function.Arguments)

	terminal := chunks[2].Choices[0]
	require.NotNil(t, terminal.FinishReason)
	assert.Equal(t, "tool_calls", *terminal.FinishReason)

	assert.Contains(t, body, `"content":null`)
}
