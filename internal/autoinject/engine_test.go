package autoinject

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/retrieval"
	"chatmemory-gateway/internal/store"
	"chatmemory-gateway/internal/synonym"
)

func newTestEngine(st store.Store) *Engine {
	cfg := config.RetrievalConfig{Deadline: 3 * time.Second, RerankTimeout: 5 * time.Second, MaxSynonyms: 5}
	re := retrieval.NewEngine(st, nil, synonym.NewExpander(), nil, cfg)
	return NewEngine(re, st)
}

func TestInject_ColdStartOnFirstRound(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, err := st.InsertTurn(context.Background(), store.Turn{
		UserID: "u1", Channel: "c1", RoundNumber: 1,
		UserMsg: "hello", AssistantMsg: "hi", SceneType: store.SceneDaily,
	})
	require.NoError(t, err)

	e := newTestEngine(st)
	out, injected := e.Inject(context.Background(), "u1", "c1", "good morning", store.SceneDaily, "you are an assistant")
	assert.True(t, injected)
	assert.Contains(t, out, "you are an assistant")
	assert.Contains(t, out, "memory reference")
}

func TestInject_MetaSceneNeverInjects(t *testing.T) {
	st := store.NewMemoryStore()
	e := newTestEngine(st)

	e.incrementRound("u1", "c1") // consume round 1 so the next call isn't cold-start
	out, injected := e.Inject(context.Background(), "u1", "c1", "还记得吗", store.SceneMeta, "sys")
	assert.False(t, injected)
	assert.Equal(t, "sys", out)
}

func TestInject_RecallKeywordTriggersHybridSearch(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, err := st.InsertTurn(context.Background(), store.Turn{
		UserID: "u1", Channel: "c1", RoundNumber: 1,
		UserMsg: "还记得上次我们去海滩吗", AssistantMsg: "it was fun", SceneType: store.SceneDaily,
	})
	require.NoError(t, err)

	e := newTestEngine(st)
	e.incrementRound("u1", "c1") // round 1 already consumed

	out, injected := e.Inject(context.Background(), "u1", "c1", "还记得上次我们去海滩吗", store.SceneDaily, "sys")
	assert.True(t, injected)
	assert.True(t, strings.Contains(out, "sys"))
}

func TestInject_DefaultRuleLeavesPromptUnchanged(t *testing.T) {
	st := store.NewMemoryStore()
	e := newTestEngine(st)
	e.incrementRound("u1", "c1")

	out, injected := e.Inject(context.Background(), "u1", "c1", "what's the weather", store.SceneDaily, "sys")
	assert.False(t, injected)
	assert.Equal(t, "sys", out)
}
