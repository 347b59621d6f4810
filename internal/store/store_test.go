package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassesSystemMessageFilter(t *testing.T) {
	cases := []struct {
		name   string
		user   string
		assist string
		want   bool
	}{
		{"ok", "hello there", "hi", true},
		{"too short user", "h", "hi", false},
		{"empty assistant", "hello there", "", false},
		{"system marker", "please summarize this", "ok", false},
		{"case insensitive marker", "You are a helpful bot", "ok", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, passesSystemMessageFilter(tc.user, tc.assist))
		})
	}
}

func TestMemoryStore_RoundAllocationAndFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rnd, err := s.NextRound(ctx, "u1", "deepseek")
	require.NoError(t, err)
	assert.Equal(t, 1, rnd)

	_, ok, err := s.InsertTurn(ctx, Turn{UserID: "u1", Channel: "deepseek", RoundNumber: rnd, UserMsg: "hi", AssistantMsg: "hello"})
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.InsertTurn(ctx, Turn{UserID: "u1", Channel: "deepseek", RoundNumber: 2, UserMsg: "x", AssistantMsg: ""})
	require.NoError(t, err)
	assert.False(t, ok, "turn with empty assistant side must be rejected")

	rnd2, err := s.NextRound(ctx, "u1", "deepseek")
	require.NoError(t, err)
	assert.Equal(t, 2, rnd2)
}

func TestMemoryStore_SaveDiaryEnforcesDailyCap(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.SaveDiary(ctx, "u1", "entry one", "happy")
	require.NoError(t, err)
	_, err = s.SaveDiary(ctx, "u1", "entry two", "happy")
	require.NoError(t, err)
	_, err = s.SaveDiary(ctx, "u1", "entry three", "happy")
	assert.ErrorIs(t, err, ErrDiaryLimitReached)
}

func TestMemoryStore_FuzzySearchRespectsSceneFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, _, _ = s.InsertTurn(ctx, Turn{UserID: "u1", Channel: "c1", RoundNumber: 1, UserMsg: "roleplay castle", AssistantMsg: "ok", SceneType: ScenePlot})
	_, _, _ = s.InsertTurn(ctx, Turn{UserID: "u1", Channel: "c1", RoundNumber: 2, UserMsg: "castle visit today", AssistantMsg: "ok", SceneType: SceneDaily})

	turns, _, err := s.FuzzySearch(ctx, "castle", "c1", ScenePlot, 10, 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, ScenePlot, turns[0].SceneType)

	turns, _, err = s.FuzzySearch(ctx, "castle", "c1", SceneDaily, 10, 10)
	require.NoError(t, err)
	assert.Len(t, turns, 2, "scene=daily should also match plot-tagged rows")
}

func TestMemoryStore_VectorSearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, _, _ = s.InsertTurn(ctx, Turn{UserID: "u1", Channel: "c1", RoundNumber: 1, UserMsg: "alpha", AssistantMsg: "a", SceneType: SceneDaily, Embedding: []float32{1, 0}})
	_, _, _ = s.InsertTurn(ctx, Turn{UserID: "u1", Channel: "c1", RoundNumber: 2, UserMsg: "bravo", AssistantMsg: "b", SceneType: SceneDaily, Embedding: []float32{0, 1}})

	turns, _, err := s.VectorSearch(ctx, []float32{1, 0}, "c1", SceneDaily, 10, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "alpha", turns[0].UserMsg, "closest vector should rank first")
}
