package synonym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand_AlwaysIncludesOriginalQuery(t *testing.T) {
	e := NewExpander()
	got := e.Expand("hello world")
	assert.Contains(t, got, "hello world")
}

func TestExpand_MatchesSynonymGroupViaReverseMap(t *testing.T) {
	e := NewExpander()
	e.Refresh([]Group{{Term: "你", Synonyms: []string{"你", "您"}}})

	got := e.Expand("你记得上次")
	assert.Contains(t, got, "你")
	assert.Contains(t, got, "您")
}

func TestExpand_CapsAtFiveTerms(t *testing.T) {
	e := NewExpander()
	e.Refresh([]Group{
		{Term: "a", Synonyms: []string{"a", "b", "c", "d", "e", "f", "g"}},
	})
	got := e.Expand("a")
	assert.LessOrEqual(t, len(got), 5)
}

func TestCandidateTerms_SplitsCJKLatinDigitRuns(t *testing.T) {
	terms := candidateTerms("hello你好123")
	assert.Contains(t, terms, "hello")
	assert.Contains(t, terms, "123")
	assert.Contains(t, terms, "你好")
}

func TestCandidateTerms_EmitsCJKNgrams(t *testing.T) {
	terms := candidateTerms("你好世界")
	assert.Contains(t, terms, "你好")
	assert.Contains(t, terms, "好世")
	assert.Contains(t, terms, "你好世")
}
