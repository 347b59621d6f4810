package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// sticker is one entry in the static catalog, scored against a requested
// mood by substring overlap between the mood and the entry's tags (spec
// §4.9 send_sticker). The catalog itself is small and hand-curated since
// the original's catalog file wasn't retrieved.
type sticker struct {
	Name string
	URL  string
	Tags []string
}

var stickerCatalog = []sticker{
	{Name: "happy-wave", URL: "https://stickers.example.com/happy-wave.png", Tags: []string{"happy", "开心", "高兴", "excited"}},
	{Name: "sad-rain", URL: "https://stickers.example.com/sad-rain.png", Tags: []string{"sad", "难过", "伤心", "down"}},
	{Name: "sleepy-cat", URL: "https://stickers.example.com/sleepy-cat.png", Tags: []string{"tired", "好累", "sleepy", "exhausted"}},
	{Name: "angry-steam", URL: "https://stickers.example.com/angry-steam.png", Tags: []string{"angry", "生气", "烦", "frustrated"}},
	{Name: "lonely-window", URL: "https://stickers.example.com/lonely-window.png", Tags: []string{"lonely", "孤独", "寂寞", "missing"}},
	{Name: "anxious-clock", URL: "https://stickers.example.com/anxious-clock.png", Tags: []string{"anxious", "焦虑", "worried", "沮丧"}},
	{Name: "neutral-nod", URL: "https://stickers.example.com/neutral-nod.png", Tags: []string{"ok", "fine", "neutral"}},
}

// SendStickerTool implements "send_sticker" (spec §4.9).
type SendStickerTool struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSendStickerTool builds the send_sticker tool.
func NewSendStickerTool() *SendStickerTool {
	return &SendStickerTool{rng: rand.New(rand.NewSource(1))}
}

func (t *SendStickerTool) Name() string { return "send_sticker" }

func (t *SendStickerTool) Schema() Schema {
	return Schema{
		Name:        "send_sticker",
		Description: "Send a sticker matching a mood.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mood": map[string]any{"type": "string"},
			},
			"required": []string{"mood"},
		},
	}
}

func (t *SendStickerTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args struct {
		Mood string `json:"mood"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return ErrorResult("invalid arguments: " + err.Error()), nil
	}

	pick := t.bestMatch(args.Mood)
	return TextResult(fmt.Sprintf("![%s](%s)", pick.Name, pick.URL)), nil
}

// bestMatch scores every catalog entry by substring overlap against mood
// and returns the highest-scoring one, falling back to a random entry when
// nothing scores above zero.
func (t *SendStickerTool) bestMatch(mood string) sticker {
	mood = strings.ToLower(strings.TrimSpace(mood))
	if mood == "" {
		return t.randomPick()
	}

	best := -1
	bestScore := 0
	for i, s := range stickerCatalog {
		score := 0
		for _, tag := range s.Tags {
			if strings.Contains(mood, strings.ToLower(tag)) || strings.Contains(strings.ToLower(tag), mood) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best == -1 {
		return t.randomPick()
	}
	return stickerCatalog[best]
}

func (t *SendStickerTool) randomPick() sticker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return stickerCatalog[t.rng.Intn(len(stickerCatalog))]
}
