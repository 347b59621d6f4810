package autoinject

import (
	"context"
	"sync"
	"time"

	"chatmemory-gateway/internal/retrieval"
	"chatmemory-gateway/internal/store"
)

// Engine runs the round counter and rule table before each request is
// dispatched upstream (spec §4.8).
type Engine struct {
	retrieval *retrieval.Engine
	store     store.Store

	mu     sync.Mutex
	rounds map[string]int
}

// NewEngine builds an auto-inject Engine.
func NewEngine(retrievalEngine *retrieval.Engine, st store.Store) *Engine {
	return &Engine{retrieval: retrievalEngine, store: st, rounds: map[string]int{}}
}

func roundKey(userID, channel string) string { return userID + "\x00" + channel }

// incrementRound bumps and returns the per-(user,channel) round counter.
// Counters live in process memory and reset on restart, matching the
// original service's session-scoped counter.
func (e *Engine) incrementRound(userID, channel string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := roundKey(userID, channel)
	e.rounds[key]++
	return e.rounds[key]
}

// Inject decides whether to splice retrieved memory into systemPrompt and
// returns the (possibly unchanged) prompt plus whether an injection
// occurred. Any retrieval error degrades to no injection (spec §4.8 "yield
// no injection", §4.10).
func (e *Engine) Inject(ctx context.Context, userID, channel, userMsg string, scene store.Scene, systemPrompt string) (string, bool) {
	round := e.incrementRound(userID, channel)

	if scene == store.SceneMeta {
		return systemPrompt, false
	}

	rule, query := e.detectRule(userMsg, scene, round)
	if rule == ruleDefault {
		return systemPrompt, false
	}

	memoryText := e.execute(ctx, rule, query, userID, channel, scene)
	if memoryText == "" {
		return systemPrompt, false
	}
	return splice(systemPrompt, memoryText), true
}

func (e *Engine) detectRule(userMsg string, scene store.Scene, round int) (rule, query string) {
	if userMsg == "" {
		return ruleDefault, ""
	}
	if round == 1 {
		return ruleColdStart, ""
	}
	if scene == store.ScenePlot {
		if _, ok := firstMatch(userMsg, plotRecallKeywords); ok {
			return rulePlotRecall, userMsg
		}
	}
	if _, ok := firstMatch(userMsg, recallKeywords); ok {
		return ruleRecall, userMsg
	}
	if kw, ok := firstMatch(userMsg, emotionKeywords); ok {
		return ruleEmotion, kw
	}
	return ruleDefault, ""
}

func (e *Engine) execute(ctx context.Context, rule, query, userID, channel string, scene store.Scene) string {
	switch rule {
	case ruleColdStart:
		return e.coldStart(ctx, userID, channel)
	case ruleRecall:
		items, err := e.retrieval.Retrieve(ctx, userID, channel, query, scene, 5)
		if err != nil {
			return ""
		}
		return formatItems(items)
	case rulePlotRecall:
		items, err := e.retrieval.Retrieve(ctx, userID, channel, query, store.ScenePlot, 5)
		if err != nil {
			return ""
		}
		return formatItems(items)
	case ruleEmotion:
		since := time.Now().Add(-3 * 24 * time.Hour).Unix()
		turns, err := e.store.RecentByEmotion(ctx, userID, channel, query, since, 3)
		if err != nil {
			return ""
		}
		items := make([]retrieval.Item, 0, len(turns))
		for _, t := range turns {
			items = append(items, retrieval.ItemFromTurn(t, retrieval.MatchKeyword))
		}
		return formatItems(items)
	default:
		return ""
	}
}

// coldStart mirrors the original cold-start response: 2 most recent
// summaries plus 3 most recent turns, both channel-scoped (spec §4.8).
func (e *Engine) coldStart(ctx context.Context, userID, channel string) string {
	summaries, err := e.store.GetRecentSummaries(ctx, userID, channel, 2)
	if err != nil {
		summaries = nil
	}
	turns, err := e.store.GetRecentTurns(ctx, userID, channel, 3)
	if err != nil {
		turns = nil
	}
	if len(summaries) == 0 && len(turns) == 0 {
		return ""
	}

	items := make([]retrieval.Item, 0, len(summaries)+len(turns))
	for _, s := range summaries {
		items = append(items, retrieval.ItemFromSummary(s, retrieval.MatchKeyword))
	}
	for _, t := range turns {
		items = append(items, retrieval.ItemFromTurn(t, retrieval.MatchKeyword))
	}
	return formatItems(items)
}

func formatItems(items []retrieval.Item) string {
	if len(items) == 0 {
		return ""
	}
	var sb []byte
	for i, it := range items {
		if i > 0 {
			sb = append(sb, '\n')
		}
		sb = append(sb, retrieval.Format(it)...)
	}
	text := string(sb)
	r := []rune(text)
	if len(r) > maxInjectChars {
		text = string(r[:maxInjectChars])
	}
	return text
}

// splice appends the memory block to systemPrompt and returns the result
// (spec §4.8 "Injection format"); placing it in a system message is left to
// the caller.
func splice(systemPrompt, memoryText string) string {
	block := "\n\n---\n[memory reference - weave in naturally, do not quote mechanically]\n\n" +
		memoryText +
		"\n\nNote: the memory above is for reference only. [plot]-tagged content is roleplay, not real events. " +
		"Timestamps may be stale and do not imply current state.\n---"
	return systemPrompt + block
}
