package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"chatmemory-gateway/internal/background"
	"chatmemory-gateway/internal/notes"
	"chatmemory-gateway/internal/store"
)

// SaveDiaryTool implements "save_diary" (spec §4.9): enforces the
// two-per-day cap in the store, then best-effort mirrors the entry to an
// external notes service on a detached background task.
type SaveDiaryTool struct {
	store notesStore
	notes *notes.Client
	exec  *background.Executor
}

type notesStore interface {
	SaveDiary(ctx context.Context, userID, content, mood string) (store.Diary, error)
}

// NewSaveDiaryTool builds the save_diary tool. notesClient may be nil, in
// which case mirroring is skipped.
func NewSaveDiaryTool(st notesStore, notesClient *notes.Client, exec *background.Executor) *SaveDiaryTool {
	return &SaveDiaryTool{store: st, notes: notesClient, exec: exec}
}

func (t *SaveDiaryTool) Name() string { return "save_diary" }

func (t *SaveDiaryTool) Schema() Schema {
	return Schema{
		Name:        "save_diary",
		Description: "Save a private diary entry (max 2 per calendar day).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{"type": "string"},
				"mood":    map[string]any{"type": "string"},
			},
			"required": []string{"content"},
		},
	}
}

type saveDiaryArgs struct {
	Content string `json:"content"`
	Mood    string `json:"mood"`
}

func (t *SaveDiaryTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args saveDiaryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return ErrorResult("invalid arguments: " + err.Error()), nil
	}
	if args.Content == "" {
		return ErrorResult("content is required"), nil
	}
	userID := userIDFrom(ctx)

	diary, err := t.store.SaveDiary(ctx, userID, args.Content, args.Mood)
	if err != nil {
		if errors.Is(err, store.ErrDiaryLimitReached) {
			return TextResult("diary limit reached for today (max 2 entries)"), nil
		}
		return ErrorResult("save_diary failed: " + err.Error()), nil
	}

	if t.notes != nil && t.exec != nil {
		entryDate := diary.CreatedAt
		t.exec.Submit("mirror_diary", func(ctx context.Context) {
			if err := t.notes.MirrorDiary(ctx, entryDate, args.Content, args.Mood); err != nil {
				log.Warn().Err(err).Msg("tools: diary notes mirror failed")
			}
		})
	}

	return TextResult("Diary entry saved."), nil
}
