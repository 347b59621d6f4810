// Package proxycore implements the Proxy Core from spec §4.1: model
// resolution, three relay modes (true streaming, non-streaming, synthetic
// streaming), and post-response capture of the conversation turn.
package proxycore

import "encoding/json"

// Message is one OpenAI-style chat message. Content may be a plain string
// or an array of content parts (multi-part user messages); RawContent
// preserves whichever shape the client sent so it can be relayed upstream
// unchanged, while Text() extracts the flattened string for capture.
type Message struct {
	Role       string          `json:"role"`
	RawContent json.RawMessage `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text flattens RawContent into a single string, concatenating the text of
// every part when the client sent a multi-part array (spec §4.1
// "concatenating multi-part text content").
func (m Message) Text() string {
	if len(m.RawContent) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.RawContent, &s); err == nil {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal(m.RawContent, &parts); err == nil {
		out := ""
		for _, p := range parts {
			out += p.Text
		}
		return out
	}
	return ""
}

// ChatRequest is the subset of an OpenAI chat-completion request the proxy
// needs to inspect. The outgoing body is built separately from the raw
// decoded map so unrecognized client fields (top_p, tools, …) pass through
// untouched.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// LastUserText returns the flattened text of the last user-role message,
// or "" if there is none (spec §4.1 capture step).
func (r ChatRequest) LastUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Text()
		}
	}
	return ""
}

// SystemMessageIndex returns the index of the first system-role message,
// or -1 if none exists (used by the auto-inject splice point).
func (r ChatRequest) SystemMessageIndex() int {
	for i, m := range r.Messages {
		if m.Role == "system" {
			return i
		}
	}
	return -1
}
