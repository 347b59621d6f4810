// Package embedding calls the external embedding service described in
// spec §4.5: text in, a fixed-dimension float vector out, failures leave
// the embedding null rather than blocking the caller.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"chatmemory-gateway/internal/config"
)

const maxInputChars = 2000

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Client wraps the HTTP call to the embedding service.
type Client struct {
	cfg        config.EmbeddingConfig
	httpClient *http.Client
}

// NewClient builds an embedding client from cfg, using httpClient for
// egress (the caller typically supplies one wrapped with otelhttp).
func NewClient(cfg config.EmbeddingConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Embed returns the embedding vector for a single piece of text, truncating
// the input to 2000 characters as spec §4.5 requires.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncate(text, maxInputChars)

	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody, err := json.Marshal(embedReq{Model: c.cfg.Model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedding service returned %s: %s", resp.Status, truncate(string(body), 200))
	}

	var er embedResp
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(er.Data) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	return er.Data[0].Embedding, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
