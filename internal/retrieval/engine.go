package retrieval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/embedding"
	"chatmemory-gateway/internal/store"
	"chatmemory-gateway/internal/synonym"
)

const (
	keywordTurnLimit    = 15
	keywordSummaryLimit = 5
	vectorTurnLimit     = 15
	vectorSummaryLimit  = 5
	minSynonymTermLen   = 2
)

// Engine wires the store, embedding client, synonym expander and reranker
// into the hybrid retrieval pipeline from spec §4.6.
type Engine struct {
	store    store.Store
	embedder *embedding.Client
	expander *synonym.Expander
	reranker *Reranker
	cfg      config.RetrievalConfig
}

// NewEngine builds a retrieval Engine. reranker may be nil, in which case
// Retrieve always falls back to the priority+recency sort.
func NewEngine(st store.Store, embedder *embedding.Client, expander *synonym.Expander, reranker *Reranker, cfg config.RetrievalConfig) *Engine {
	return &Engine{store: st, embedder: embedder, expander: expander, reranker: reranker, cfg: cfg}
}

// Retrieve runs the full hybrid-retrieval pipeline for one query: scene
// short-circuit, synonym expansion, parallel keyword+vector search bounded
// by the hard deadline, merge/dedupe, and rerank-or-fallback-sort, trimmed
// to limit (spec §4.6 steps 1-5).
func (e *Engine) Retrieve(ctx context.Context, userID, channel, query string, scene store.Scene, limit int) ([]Item, error) {
	if scene == store.SceneMeta {
		return nil, nil
	}
	if limit <= 0 {
		limit = 8
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	terms := e.expander.Expand(query)
	if n := e.cfg.MaxSynonyms; n > 0 && len(terms) > n {
		terms = terms[:n]
	}

	var vectorItems, keywordItems []Item
	g, gctx := errgroup.WithContext(cctx)

	g.Go(func() error {
		items, err := e.keywordSearch(gctx, channel, scene, terms)
		if err != nil {
			return nil // keyword arm is best-effort; deadline/errors degrade to empty
		}
		keywordItems = items
		return nil
	})
	g.Go(func() error {
		items, err := e.vectorSearch(gctx, channel, scene, query)
		if err != nil {
			return nil // vector arm is best-effort for the same reason
		}
		vectorItems = items
		return nil
	})
	_ = g.Wait()

	merged := mergeDedupe(vectorItems, keywordItems)
	if len(merged) == 0 {
		return merged, nil
	}

	ordered := e.rerank(cctx, query, merged)
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

func (e *Engine) keywordSearch(ctx context.Context, channel string, scene store.Scene, terms []string) ([]Item, error) {
	var items []Item
	for _, term := range terms {
		if len([]rune(term)) < minSynonymTermLen {
			continue
		}
		turns, summaries, err := e.store.FuzzySearch(ctx, term, channel, scene, keywordTurnLimit, keywordSummaryLimit)
		if err != nil {
			if ctx.Err() != nil {
				return items, ctx.Err()
			}
			continue
		}
		for _, t := range turns {
			items = append(items, itemFromTurn(t, MatchKeyword))
		}
		for _, s := range summaries {
			items = append(items, itemFromSummary(s, MatchKeyword))
		}
	}
	return items, nil
}

func (e *Engine) vectorSearch(ctx context.Context, channel string, scene store.Scene, query string) ([]Item, error) {
	if e.embedder == nil {
		return nil, nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	turns, summaries, err := e.store.VectorSearch(ctx, vec, channel, scene, vectorTurnLimit, vectorSummaryLimit)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(turns)+len(summaries))
	for _, t := range turns {
		items = append(items, itemFromTurn(t, MatchVector))
	}
	for _, s := range summaries {
		items = append(items, itemFromSummary(s, MatchVector))
	}
	return items, nil
}

// rerank reorders merged via the external reranker, falling back to the
// priority+recency sort on any failure (missing client, timeout, non-2xx).
func (e *Engine) rerank(ctx context.Context, query string, merged []Item) []Item {
	if e.reranker == nil {
		fallbackSort(merged)
		return merged
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.RerankTimeout)
	defer cancel()

	docs := make([]string, len(merged))
	for i, it := range merged {
		docs[i] = it.Text
	}
	order, err := e.reranker.Rerank(rctx, query, docs, len(merged))
	if err != nil || len(order) == 0 {
		fallbackSort(merged)
		return merged
	}

	out := make([]Item, 0, len(order))
	seen := make(map[int]bool, len(order))
	for _, idx := range order {
		if idx < 0 || idx >= len(merged) || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, merged[idx])
	}
	for i, it := range merged {
		if !seen[i] {
			out = append(out, it)
		}
	}
	return out
}
