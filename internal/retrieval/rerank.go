package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"chatmemory-gateway/internal/config"
)

// Reranker scores (query, documents) pairs via an external service (spec
// §4.6 step 4, §6 "POST /v1/rerank").
type Reranker struct {
	cfg        config.RerankConfig
	httpClient *http.Client
}

// NewReranker builds a reranker client from cfg.
func NewReranker(cfg config.RerankConfig, httpClient *http.Client) *Reranker {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Reranker{cfg: cfg, httpClient: httpClient}
}

type rerankReq struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResp struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank returns item indices (into docs) in descending relevance order,
// trimmed to topN. Callers fall back to priority+recency sort on error.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []string, topN int) ([]int, error) {
	if r.cfg.BaseURL == "" {
		return nil, fmt.Errorf("retrieval: reranker not configured")
	}
	cctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(rerankReq{Model: r.cfg.Model, Query: query, Documents: docs, TopN: topN})
	if err != nil {
		return nil, fmt.Errorf("retrieval: marshal rerank request: %w", err)
	}
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, r.cfg.BaseURL+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("retrieval: build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval: rerank request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("retrieval: read rerank response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("retrieval: reranker returned %s", resp.Status)
	}

	var rr rerankResp
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("retrieval: parse rerank response: %w", err)
	}
	sort.Slice(rr.Results, func(i, j int) bool { return rr.Results[i].RelevanceScore > rr.Results[j].RelevanceScore })

	out := make([]int, 0, len(rr.Results))
	for _, res := range rr.Results {
		out = append(out, res.Index)
	}
	return out, nil
}

// matchPriority implements the fallback ordering from spec §4.6 step 4:
// both=0, vector=1, keyword=2, then created_at descending.
func matchPriority(mt MatchType) int {
	switch mt {
	case MatchBoth:
		return 0
	case MatchVector:
		return 1
	default:
		return 2
	}
}

func fallbackSort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := matchPriority(items[i].MatchType), matchPriority(items[j].MatchType)
		if pi != pj {
			return pi < pj
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
