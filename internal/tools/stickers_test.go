package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendStickerTool_MatchesMoodKeyword(t *testing.T) {
	tool := NewSendStickerTool()
	raw, _ := json.Marshal(map[string]any{"mood": "I'm so tired today"})
	res, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].Text, "sleepy-cat")
}

func TestSendStickerTool_UnknownMoodFallsBackToRandomEntry(t *testing.T) {
	tool := NewSendStickerTool()
	raw, _ := json.Marshal(map[string]any{"mood": "xyzzyqux"})
	res, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].Text, "![")
}

func TestSendStickerTool_ResultIsMarkdownImage(t *testing.T) {
	tool := NewSendStickerTool()
	raw, _ := json.Marshal(map[string]any{"mood": "happy"})
	res, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)
	assert.Regexp(t, `!\[.+\]\(.+\)`, res.Content[0].Text)
}
