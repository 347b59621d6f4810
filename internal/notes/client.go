// Package notes mirrors saved diary entries to an external notes service,
// best-effort (spec §4.9 save_diary, §6 notes-service egress). Grounded on
// the original's yuque_service.py: a single document-create POST, the raw
// token sent in an X-Auth-Token header, slug derived from the entry's date.
package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chatmemory-gateway/internal/config"
)

// Client wraps the HTTP call to the notes service.
type Client struct {
	cfg        config.NotesConfig
	httpClient *http.Client
}

// NewClient builds a notes Client. Returns nil when no base URL is
// configured, so callers can treat a nil *Client as "mirroring disabled".
func NewClient(cfg config.NotesConfig, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type createDocRequest struct {
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Body   string `json:"body"`
	Format string `json:"format"`
}

// MirrorDiary creates a document in the external notes service for one
// diary entry. Failures are the caller's to log and drop (spec §4.10).
func (c *Client) MirrorDiary(ctx context.Context, entryDate time.Time, content, mood string) error {
	title := fmt.Sprintf("%s diary (%s)", entryDate.Format("2006-01-02"), mood)
	reqBody, err := json.Marshal(createDocRequest{
		Title:  title,
		Slug:   "diary-" + entryDate.Format("2006-01-02"),
		Body:   content,
		Format: "markdown",
	})
	if err != nil {
		return fmt.Errorf("notes: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/docs", c.cfg.BaseURL, c.cfg.RepoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("notes: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("X-Auth-Token", c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notes: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("notes: service returned %s: %s", resp.Status, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
