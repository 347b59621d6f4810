package tools

import (
	"context"
	"encoding/json"
	"strings"

	"chatmemory-gateway/internal/retrieval"
	"chatmemory-gateway/internal/scene"
	"chatmemory-gateway/internal/store"
)

// userIDCtxKey keys the caller's user id in a context. The mcpserver
// transport sets it on each request via WithUserID; userIDFrom reads it
// back, defaulting to "default".
type userIDCtxKey struct{}

// WithUserID attaches userID to ctx for the tools dispatched from it.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDCtxKey{}).(string)
	if id == "" {
		return "default"
	}
	return id
}

// SearchMemoryTool implements "search_memory" (spec §4.9): hybrid
// retrieval, formatted with [scene] tags and timestamps, falling back to
// a plain keyword search if the full engine errors or finds nothing.
type SearchMemoryTool struct {
	retrieval *retrieval.Engine
	store     store.Store
	scenes    *scene.Detector
}

// NewSearchMemoryTool builds the search_memory tool.
func NewSearchMemoryTool(re *retrieval.Engine, st store.Store, scenes *scene.Detector) *SearchMemoryTool {
	return &SearchMemoryTool{retrieval: re, store: st, scenes: scenes}
}

func (t *SearchMemoryTool) Name() string { return "search_memory" }

func (t *SearchMemoryTool) Schema() Schema {
	return Schema{
		Name:        "search_memory",
		Description: "Search stored conversation memory (turns and summaries) by keyword and meaning.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":   map[string]any{"type": "string", "description": "what to search for"},
				"limit":   map[string]any{"type": "integer", "description": "max results, default 5"},
				"channel": map[string]any{"type": "string", "description": "conversation channel"},
			},
			"required": []string{"query"},
		},
	}
}

type searchMemoryArgs struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit"`
	Channel string `json:"channel"`
}

func (t *SearchMemoryTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args searchMemoryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return ErrorResult("invalid arguments: " + err.Error()), nil
	}
	if args.Query == "" {
		return ErrorResult("query is required"), nil
	}
	if args.Limit <= 0 {
		args.Limit = 5
	}
	channel := args.Channel
	if channel == "" {
		channel = "default"
	}
	userID := userIDFrom(ctx)
	currentScene := t.scenes.Current(channel)

	items, err := t.retrieval.Retrieve(ctx, userID, channel, args.Query, store.Scene(currentScene), args.Limit)
	if err != nil || len(items) == 0 {
		items = t.keywordFallback(ctx, channel, currentScene, args.Query, args.Limit)
	}
	if len(items) == 0 {
		return TextResult("No matching memories found."), nil
	}
	return TextResult(formatResults(items)), nil
}

func (t *SearchMemoryTool) keywordFallback(ctx context.Context, channel string, currentScene scene.Scene, query string, limit int) []retrieval.Item {
	turns, summaries, err := t.store.FuzzySearch(ctx, query, channel, store.Scene(currentScene), limit, limit)
	if err != nil {
		return nil
	}
	items := make([]retrieval.Item, 0, len(turns)+len(summaries))
	for _, tn := range turns {
		items = append(items, retrieval.ItemFromTurn(tn, retrieval.MatchKeyword))
	}
	for _, s := range summaries {
		items = append(items, retrieval.ItemFromSummary(s, retrieval.MatchKeyword))
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// InitContextTool implements "init_context" (spec §4.9): the same
// structure as the auto-inject cold-start rule, returned explicitly rather
// than spliced into a system prompt.
type InitContextTool struct {
	store store.Store
}

// NewInitContextTool builds the init_context tool.
func NewInitContextTool(st store.Store) *InitContextTool {
	return &InitContextTool{store: st}
}

func (t *InitContextTool) Name() string { return "init_context" }

func (t *InitContextTool) Schema() Schema {
	return Schema{
		Name:        "init_context",
		Description: "Fetch recent conversation summaries and turns to re-establish context at the start of a session.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit":   map[string]any{"type": "integer", "description": "max turns, default 3"},
				"channel": map[string]any{"type": "string", "description": "conversation channel"},
			},
		},
	}
}

type initContextArgs struct {
	Limit   int    `json:"limit"`
	Channel string `json:"channel"`
}

func (t *InitContextTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args initContextArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return ErrorResult("invalid arguments: " + err.Error()), nil
		}
	}
	if args.Limit <= 0 {
		args.Limit = 3
	}
	channel := args.Channel
	if channel == "" {
		channel = "default"
	}
	userID := userIDFrom(ctx)

	summaries, err := t.store.GetRecentSummaries(ctx, userID, channel, 2)
	if err != nil {
		summaries = nil
	}
	turns, err := t.store.GetRecentTurns(ctx, userID, channel, args.Limit)
	if err != nil {
		turns = nil
	}
	if len(summaries) == 0 && len(turns) == 0 {
		return TextResult("No prior context found."), nil
	}

	items := make([]retrieval.Item, 0, len(summaries)+len(turns))
	for _, s := range summaries {
		items = append(items, retrieval.ItemFromSummary(s, retrieval.MatchKeyword))
	}
	for _, tn := range turns {
		items = append(items, retrieval.ItemFromTurn(tn, retrieval.MatchKeyword))
	}
	return TextResult(formatResults(items)), nil
}

func formatResults(items []retrieval.Item) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, retrieval.Format(it))
	}
	return strings.Join(lines, "\n")
}
