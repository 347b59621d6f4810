// Package llmclient makes non-streaming chat-completion calls to an
// upstream backend, used by the summary pipeline (spec §4.7) to turn a
// window of turns into a short narrative summary.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Message mirrors an OpenAI-style chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client performs a single blocking chat-completion call against a given
// backend base URL/API key/model.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a Client. httpClient is typically shared with the rest
// of the process so outbound calls pick up the same tracing instrumentation.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

// Complete calls baseURL+"/chat/completions" with the given messages and
// returns the first choice's message content.
func (c *Client) Complete(ctx context.Context, baseURL, apiKey, model string, msgs []Message, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llmclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llmclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llmclient: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llmclient: read response: %w", err)
	}

	var out completionResponse
	if resp.StatusCode/100 != 2 {
		if err := json.Unmarshal(raw, &out); err == nil && out.Error != nil {
			return "", fmt.Errorf("llmclient: backend error: %s", out.Error.Message)
		}
		return "", fmt.Errorf("llmclient: backend returned %s", resp.Status)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("llmclient: parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llmclient: no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
