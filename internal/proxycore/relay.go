package proxycore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatmemory-gateway/internal/config"
)

// RelayResult carries what the capture step needs after a response has
// finished, regardless of which relay mode produced it.
type RelayResult struct {
	AssistantText string
	ReasoningText string
}

// upstreamRequest builds the outgoing *http.Request for backend, rewriting
// model to its upstream-native name and attaching auth/custom headers
// (spec §4.1).
func upstreamRequest(ctx context.Context, backend config.Backend, body map[string]any, streamToUpstream bool) (*http.Request, error) {
	body["model"] = backend.UpstreamName
	body["stream"] = streamToUpstream

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("proxycore: marshal upstream body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(backend.BaseURL, "/")+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("proxycore: build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if backend.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+backend.APIKey)
	}
	for k, v := range backend.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// RelayNonStreaming issues a single request/response and writes the body
// straight back to the client, forwarding upstream's status code verbatim
// (spec §4.1 mode 2, §4.10 "forward verbatim").
func RelayNonStreaming(ctx context.Context, httpClient *http.Client, backend config.Backend, body map[string]any, w http.ResponseWriter) (RelayResult, error) {
	req, err := upstreamRequest(ctx, backend, body, false)
	if err != nil {
		return RelayResult{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return RelayResult{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return RelayResult{}, fmt.Errorf("proxycore: read upstream response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(raw)

	if resp.StatusCode/100 != 2 {
		return RelayResult{}, nil
	}
	return extractNonStreamingResult(raw), nil
}

type nonStreamingChoice struct {
	Message struct {
		Content          string `json:"content"`
		ReasoningContent string `json:"reasoning_content"`
	} `json:"message"`
}

func extractNonStreamingResult(raw []byte) RelayResult {
	var parsed struct {
		Choices []nonStreamingChoice `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return RelayResult{}
	}
	return RelayResult{
		AssistantText: parsed.Choices[0].Message.Content,
		ReasoningText: parsed.Choices[0].Message.ReasoningContent,
	}
}

// RelayTrueStreaming byte-relays each upstream SSE line to the client while
// accumulating content/reasoning_content deltas for capture (spec §4.1
// mode 1).
func RelayTrueStreaming(ctx context.Context, httpClient *http.Client, backend config.Backend, body map[string]any, w http.ResponseWriter) (RelayResult, error) {
	req, err := upstreamRequest(ctx, backend, body, true)
	if err != nil {
		return RelayResult{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return RelayResult{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(resp.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(raw)
		return RelayResult{}, nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)

	var content, reasoning strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		_, _ = io.WriteString(w, line+"\n\n")
		if flusher != nil {
			flusher.Flush()
		}

		if !strings.HasPrefix(trimmed, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(trimmed, "data:"))
		if data == "[DONE]" {
			continue
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content          string `json:"content"`
					ReasoningContent string `json:"reasoning_content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil || len(chunk.Choices) == 0 {
			continue
		}
		content.WriteString(chunk.Choices[0].Delta.Content)
		reasoning.WriteString(chunk.Choices[0].Delta.ReasoningContent)
	}

	return RelayResult{AssistantText: content.String(), ReasoningText: reasoning.String()}, nil
}

func classifyTransportError(err error) error {
	return &UpstreamError{Err: err}
}

// UpstreamError distinguishes a transport-level failure (connection
// refused, DNS, etc — spec §4.1 "connection error -> 502") from a timeout,
// which the caller maps to 504 by checking ctx.Err()/os errors.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }
