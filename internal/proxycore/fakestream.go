package proxycore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chatmemory-gateway/internal/config"
)

// sliceChars is the granularity synthetic streaming chops text into before
// emitting each delta chunk (spec §4.1 "~4-character slices").
const sliceChars = 4

// sliceDelay is the cooperative yield between content slices (spec §4.1
// "~20 ms cooperative yield").
const sliceDelay = 20 * time.Millisecond

type upstreamToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type upstreamChoice struct {
	Message struct {
		Content          string             `json:"content"`
		ReasoningContent string             `json:"reasoning_content"`
		ToolCalls        []upstreamToolCall `json:"tool_calls"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type upstreamResponse struct {
	ID      string           `json:"id"`
	Created int64            `json:"created"`
	Model   string           `json:"model"`
	Choices []upstreamChoice `json:"choices"`
}

type toolCallFunctionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// chunkDelta mirrors an OpenAI streaming chunk's choices[0].delta.
// Content has no omitempty: the synthetic-streaming contract requires the
// first tool-call chunk to carry an explicit "content": null, which a nil
// *string only serializes as when the field isn't dropped.
type chunkDelta struct {
	Role             string             `json:"role,omitempty"`
	Content          *string            `json:"content"`
	ReasoningContent string             `json:"reasoning_content,omitempty"`
	ToolCalls        []streamedToolCall `json:"tool_calls,omitempty"`
}

type streamedToolCall struct {
	Index    int                    `json:"index"`
	ID       string                 `json:"id,omitempty"`
	Type     string                 `json:"type,omitempty"`
	Function *toolCallFunctionDelta `json:"function,omitempty"`
}

type streamChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type streamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
}

// RelayFakeStreaming issues a non-streaming request upstream, then
// re-serializes the response as SSE matching the ordering contract from
// spec §4.1 (reasoning, then tool-calls OR content, then a terminal chunk
// and data: [DONE]).
func RelayFakeStreaming(ctx context.Context, httpClient *http.Client, backend config.Backend, body map[string]any, w http.ResponseWriter) (RelayResult, error) {
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
	if resp.StatusCode/100 != 2 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(raw)
		return RelayResult{}, nil
	}

	var up upstreamResponse
	if err := json.Unmarshal(raw, &up); err != nil || len(up.Choices) == 0 {
		return RelayResult{}, fmt.Errorf("proxycore: parse upstream response for fake-stream: %w", err)
	}
	choice := up.Choices[0]

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)

	emit := func(delta chunkDelta, finishReason *string) {
		c := streamChunk{
			ID: up.ID, Object: "chat.completion.chunk", Created: up.Created, Model: up.Model,
			Choices: []streamChoice{{Delta: delta, FinishReason: finishReason}},
		}
		raw, _ := json.Marshal(c)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", raw)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if len(choice.Message.ToolCalls) > 0 {
		emitToolCallStream(ctx, emit, choice)
	} else {
		emitTextStream(ctx, emit, choice)
	}

	_, _ = io.WriteString(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	return RelayResult{AssistantText: choice.Message.Content, ReasoningText: choice.Message.ReasoningContent}, nil
}

func emitToolCallStream(ctx context.Context, emit func(chunkDelta, *string), choice upstreamChoice) {
	if choice.Message.ReasoningContent != "" {
		streamSlices(ctx, choice.Message.ReasoningContent, func(slice string) {
			emit(chunkDelta{ReasoningContent: slice}, nil)
		})
	}

	for i, tc := range choice.Message.ToolCalls {
		nameDelta := chunkDelta{ToolCalls: []streamedToolCall{{
			Index: i, ID: tc.ID, Type: "function",
			Function: &toolCallFunctionDelta{Name: tc.Function.Name, Arguments: ""},
		}}}
		if i == 0 {
			nameDelta.Role = "assistant" // Content stays nil -> serializes as "content": null
		}
		emit(nameDelta, nil)

		emit(chunkDelta{ToolCalls: []streamedToolCall{{
			Index:    i,
			Function: &toolCallFunctionDelta{Arguments: tc.Function.Arguments},
		}}}, nil)
	}

	finish := "tool_calls"
	emit(chunkDelta{}, &finish)
}

func emitTextStream(ctx context.Context, emit func(chunkDelta, *string), choice upstreamChoice) {
	empty := ""
	emit(chunkDelta{Role: "assistant", Content: &empty}, nil)

	if choice.Message.ReasoningContent != "" {
		streamSlices(ctx, choice.Message.ReasoningContent, func(slice string) {
			emit(chunkDelta{ReasoningContent: slice}, nil)
		})
	}

	streamSlices(ctx, choice.Message.Content, func(slice string) {
		emit(chunkDelta{Content: &slice}, nil)
		time.Sleep(sliceDelay)
	})

	finish := "stop"
	emit(chunkDelta{}, &finish)
}

// streamSlices splits text into ~sliceChars-rune chunks and invokes fn for
// each, bailing out early if ctx is cancelled (client disconnected).
func streamSlices(ctx context.Context, text string, fn func(slice string)) {
	runes := []rune(text)
	for i := 0; i < len(runes); i += sliceChars {
		if ctx.Err() != nil {
			return
		}
		end := i + sliceChars
		if end > len(runes) {
			end = len(runes)
		}
		fn(string(runes[i:end]))
	}
}
