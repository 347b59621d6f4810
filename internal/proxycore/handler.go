package proxycore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"chatmemory-gateway/internal/autoinject"
	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/observability"
	"chatmemory-gateway/internal/scene"
	"chatmemory-gateway/internal/store"
)

// toStoreScene converts the scene detector's Scene type to the store
// package's, which share the same underlying string values but are
// distinct types to keep the two packages decoupled.
func toStoreScene(s scene.Scene) store.Scene {
	return store.Scene(s)
}

// Handler serves POST /v1/chat/completions: resolve the model, run the
// scene detector and auto-inject engine, relay to the backend in whichever
// of the three modes applies, then capture the turn (spec §4.1).
type Handler struct {
	backends         config.BackendTable
	outboundProxyURL string
	scenes           *scene.Detector
	autoInject       *autoinject.Engine
	capturer         *Capturer
}

// NewHandler builds the chat-completions Handler.
func NewHandler(backends config.BackendTable, outboundProxyURL string, scenes *scene.Detector, autoInject *autoinject.Engine, capturer *Capturer) *Handler {
	return &Handler{backends: backends, outboundProxyURL: outboundProxyURL, scenes: scenes, autoInject: autoInject, capturer: capturer}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "error reading request body: "+err.Error())
		return
	}

	var parsed ChatRequest
	if err := json.Unmarshal(raw, &parsed); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON in request: "+err.Error())
		return
	}
	var bodyMap map[string]any
	if err := json.Unmarshal(raw, &bodyMap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON in request: "+err.Error())
		return
	}

	userID, channel := requestIdentity(r)

	requestedModel, isFakeStream := stripFakeStreamPrefix(parsed.Model)
	canonical, backend, ok := h.backends.Resolve(requestedModel)
	if !ok {
		writeError(w, http.StatusBadGateway, "unknown model: "+parsed.Model)
		return
	}

	userMsg := parsed.LastUserText()
	sceneResult := h.scenes.Detect(channel, userMsg)

	if sysIdx := parsed.SystemMessageIndex(); sysIdx >= 0 || userMsg != "" {
		systemPrompt := ""
		if sysIdx >= 0 {
			systemPrompt = parsed.Messages[sysIdx].Text()
		}
		injected, didInject := h.autoInject.Inject(r.Context(), userID, channel, userMsg, toStoreScene(sceneResult.Scene), systemPrompt)
		if didInject {
			spliceSystemMessage(bodyMap, sysIdx, injected)
		}
	}

	timeout := backendTimeout(canonical)
	httpClient := httpClientFor(backend, h.outboundProxyURL, timeout)
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	var result RelayResult
	switch {
	case isFakeStream:
		result, err = RelayFakeStreaming(ctx, httpClient, backend, bodyMap, w)
	case parsed.Stream:
		result, err = RelayTrueStreaming(ctx, httpClient, backend, bodyMap, w)
	default:
		result, err = RelayNonStreaming(ctx, httpClient, backend, bodyMap, w)
	}

	logger := observability.LoggerWithTrace(r.Context())
	if err != nil {
		status, msg := classifyRelayError(ctx, err)
		logger.Warn().Err(err).Str("backend", backend.BaseURL).Msg("proxycore: relay failed")
		writeError(w, status, msg)
		return
	}

	if userMsg != "" && result.AssistantText != "" {
		h.capturer.Capture(userID, channel, userMsg, result.AssistantText, toStoreScene(sceneResult.Scene))
	}
}

func requestIdentity(r *http.Request) (userID, channel string) {
	userID = firstNonEmpty(r.Header.Get("X-User-Id"), "default")
	channel = firstNonEmpty(r.Header.Get("X-Channel"), "default")
	return
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// spliceSystemMessage writes the auto-inject result back into the outgoing
// body map, appending to the existing system message or inserting a new
// one at index 0 (spec §4.8 "Injection format").
func spliceSystemMessage(bodyMap map[string]any, sysIdx int, content string) {
	messages, ok := bodyMap["messages"].([]any)
	if !ok {
		return
	}
	if sysIdx >= 0 && sysIdx < len(messages) {
		if m, ok := messages[sysIdx].(map[string]any); ok {
			m["content"] = content
			messages[sysIdx] = m
		}
		bodyMap["messages"] = messages
		return
	}
	newMsgs := make([]any, 0, len(messages)+1)
	newMsgs = append(newMsgs, map[string]any{"role": "system", "content": content})
	newMsgs = append(newMsgs, messages...)
	bodyMap["messages"] = newMsgs
}

func classifyRelayError(ctx context.Context, err error) (int, string) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "Gateway timeout"
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		if os.IsTimeout(upstreamErr.Err) {
			return http.StatusGatewayTimeout, "Gateway timeout"
		}
		return http.StatusBadGateway, "Bad gateway: " + upstreamErr.Error()
	}
	return http.StatusBadGateway, "Bad gateway: " + err.Error()
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": message}})
}
