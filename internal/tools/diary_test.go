package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/background"
	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/notes"
	"chatmemory-gateway/internal/store"
)

func TestSaveDiaryTool_SavesAndMirrors(t *testing.T) {
	st := store.NewMemoryStore()

	var mirrored bool
	notesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mirrored = true
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":1}}`))
	}))
	defer notesSrv.Close()
	notesClient := notes.NewClient(config.NotesConfig{BaseURL: notesSrv.URL, RepoID: "1"}, notesSrv.Client())
	exec := background.NewExecutor(2)

	tool := NewSaveDiaryTool(st, notesClient, exec)
	ctx := WithUserID(context.Background(), "u1")
	raw, _ := json.Marshal(map[string]any{"content": "a good day", "mood": "happy"})

	res, err := tool.Call(ctx, raw)
	require.NoError(t, err)
	assert.False(t, res.IsError)

	exec.Wait()
	assert.True(t, mirrored)
}

func TestSaveDiaryTool_EnforcesDailyCap(t *testing.T) {
	st := store.NewMemoryStore()
	tool := NewSaveDiaryTool(st, nil, nil)
	ctx := WithUserID(context.Background(), "u1")

	for i := 0; i < 2; i++ {
		raw, _ := json.Marshal(map[string]any{"content": "entry", "mood": "ok"})
		res, err := tool.Call(ctx, raw)
		require.NoError(t, err)
		assert.False(t, res.IsError)
	}

	raw, _ := json.Marshal(map[string]any{"content": "one too many", "mood": "ok"})
	res, err := tool.Call(ctx, raw)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "limit reached")
}

func TestSaveDiaryTool_MissingContentIsError(t *testing.T) {
	st := store.NewMemoryStore()
	tool := NewSaveDiaryTool(st, nil, nil)
	res, err := tool.Call(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
