// Package retrieval implements the Hybrid Retrieval engine from spec §4.6:
// parallel keyword + vector search, synonym expansion, merge/dedupe, and an
// optional external rerank, all bounded by a hard end-to-end deadline.
package retrieval

import (
	"time"

	"chatmemory-gateway/internal/store"
)

// MatchType records which arm(s) of the hybrid search surfaced an item
// (spec §4.6, §8).
type MatchType string

const (
	MatchVector  MatchType = "vector"
	MatchKeyword MatchType = "keyword"
	MatchBoth    MatchType = "both"
)

// Source identifies which table an item came from.
type Source string

const (
	SourceConversation Source = "conversations"
	SourceSummary      Source = "summaries"
)

// Item is one retrieval result, normalized from either a Turn or a Summary.
type Item struct {
	ID        string
	Source    Source
	Text      string
	SceneType store.Scene
	CreatedAt time.Time
	MatchType MatchType
}
