package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatmemory-gateway/internal/store"
)

func TestMergeDedupe_VectorPrecedesKeyword(t *testing.T) {
	now := time.Now()
	v := []Item{{ID: "a", CreatedAt: now}, {ID: "b", CreatedAt: now}}
	k := []Item{{ID: "c", CreatedAt: now}}

	got := mergeDedupe(v, k)
	assert.Equal(t, []string{"a", "b", "c"}, idsOf(got))
	assert.Equal(t, MatchVector, got[0].MatchType)
	assert.Equal(t, MatchKeyword, got[2].MatchType)
}

func TestMergeDedupe_OverlapUpgradesToBoth(t *testing.T) {
	now := time.Now()
	v := []Item{{ID: "a", CreatedAt: now}}
	k := []Item{{ID: "a", CreatedAt: now}, {ID: "b", CreatedAt: now}}

	got := mergeDedupe(v, k)
	assert.Equal(t, []string{"a", "b"}, idsOf(got))
	assert.Equal(t, MatchBoth, got[0].MatchType)
	assert.Equal(t, MatchKeyword, got[1].MatchType)
}

func TestItemFromTurn_CombinesUserAndAssistantText(t *testing.T) {
	turn := store.Turn{ID: "t1", UserMsg: "hello", AssistantMsg: "hi there", SceneType: store.SceneDaily}
	it := itemFromTurn(turn, MatchVector)
	assert.Equal(t, "hello / hi there", it.Text)
	assert.Equal(t, SourceConversation, it.Source)
}

func idsOf(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
