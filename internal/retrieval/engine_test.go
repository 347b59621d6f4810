package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/store"
	"chatmemory-gateway/internal/synonym"
)

func newTestEngine(st store.Store) *Engine {
	cfg := config.RetrievalConfig{Deadline: 3 * time.Second, RerankTimeout: 5 * time.Second, MaxSynonyms: 5}
	return NewEngine(st, nil, synonym.NewExpander(), nil, cfg)
}

func TestEngine_Retrieve_SceneMetaShortCircuits(t *testing.T) {
	st := store.NewMemoryStore()
	e := newTestEngine(st)

	items, err := e.Retrieve(context.Background(), "u1", "c1", "anything", store.SceneMeta, 8)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEngine_Retrieve_FindsKeywordMatchAndFallbackSorts(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, err := st.InsertTurn(context.Background(), store.Turn{
		UserID: "u1", Channel: "c1", RoundNumber: 1,
		UserMsg: "do you remember the dragon story", AssistantMsg: "yes, the dragon",
		SceneType: store.SceneDaily, CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	e := newTestEngine(st)
	items, err := e.Retrieve(context.Background(), "u1", "c1", "dragon", store.SceneDaily, 8)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, MatchKeyword, items[0].MatchType)
}

func TestEngine_Retrieve_TrimsToLimit(t *testing.T) {
	st := store.NewMemoryStore()
	for i := 0; i < 5; i++ {
		_, _, err := st.InsertTurn(context.Background(), store.Turn{
			UserID: "u1", Channel: "c1", RoundNumber: i + 1,
			UserMsg: "apple apple apple", AssistantMsg: "ok",
			SceneType: store.SceneDaily, CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	e := newTestEngine(st)
	items, err := e.Retrieve(context.Background(), "u1", "c1", "apple", store.SceneDaily, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
