// Package summary implements the Summary Pipeline from spec §4.7: every
// completed chat round is folded into a rolling window, and once enough
// rounds accumulate a short narrative summary is generated and persisted.
package summary

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/llmclient"
	"chatmemory-gateway/internal/observability"
	"chatmemory-gateway/internal/store"
)

const systemPrompt = "Summarize the following conversation turns in 2-3 sentences. Preserve names, events, and decisions. Be concise and factual."

// Pipeline drives check_and_generate for one store.
type Pipeline struct {
	store store.Store
	llm   *llmclient.Client
	cfg   config.SummaryConfig
}

// NewPipeline builds a summary Pipeline.
func NewPipeline(st store.Store, llm *llmclient.Client, cfg config.SummaryConfig) *Pipeline {
	return &Pipeline{store: st, llm: llm, cfg: cfg}
}

// CheckAndGenerate implements spec §4.7 steps 1-5: if enough unsummarized
// rounds have accumulated, summarize the next contiguous window and persist
// it. Called asynchronously after every completed chat request (spec
// §4.10: failures are logged and dropped, never surfaced to the caller).
func (p *Pipeline) CheckAndGenerate(ctx context.Context, userID, channel string) {
	if err := p.checkAndGenerate(ctx, userID, channel); err != nil {
		observability.LoggerWithTrace(ctx).Warn().
			Err(err).Str("user_id", userID).Str("channel", channel).
			Msg("summary: check_and_generate failed, dropping")
	}
}

func (p *Pipeline) checkAndGenerate(ctx context.Context, userID, channel string) error {
	windowSize := p.cfg.WindowSize
	if windowSize <= 0 {
		windowSize = 5
	}

	currentRound, err := p.store.NextRound(ctx, userID, channel)
	if err != nil {
		return fmt.Errorf("summary: resolve current round: %w", err)
	}
	currentRound-- // NextRound returns the *next* allocatable round; the last completed round is one less.

	lastSummarized, err := p.store.GetLastSummarizedRound(ctx, userID, channel)
	if err != nil {
		return fmt.Errorf("summary: resolve last summarized round: %w", err)
	}

	pending := currentRound - lastSummarized
	if pending < windowSize {
		return nil
	}

	startRound := lastSummarized + 1
	endRound := lastSummarized + windowSize

	turns, err := p.store.GetTurnsInRoundRange(ctx, userID, channel, startRound, endRound)
	if err != nil {
		return fmt.Errorf("summary: fetch window: %w", err)
	}
	if len(turns) == 0 {
		return nil
	}

	scene := dominantScene(turns)
	text, err := p.generate(ctx, turns)
	if err != nil {
		return fmt.Errorf("summary: generate: %w", err)
	}

	saved, err := p.store.InsertSummary(ctx, store.Summary{
		UserID:     userID,
		Channel:    channel,
		StartRound: startRound,
		EndRound:   endRound,
		Text:       text,
		SceneType:  scene,
	})
	if err != nil {
		return fmt.Errorf("summary: persist: %w", err)
	}

	log.Debug().Str("summary_id", saved.ID).Int("start", startRound).Int("end", endRound).
		Msg("summary: generated")
	return nil
}

func (p *Pipeline) generate(ctx context.Context, turns []store.Turn) (string, error) {
	msgs := []llmclient.Message{{Role: "system", Content: systemPrompt}}
	for _, t := range turns {
		msgs = append(msgs,
			llmclient.Message{Role: "user", Content: t.UserMsg},
			llmclient.Message{Role: "assistant", Content: t.AssistantMsg},
		)
	}
	return p.llm.Complete(ctx, p.cfg.BaseURL, p.cfg.APIKey, p.cfg.Model, msgs, p.cfg.MaxTokens, p.cfg.Temperature)
}

// dominantScene picks the plurality scene_type across turns, breaking ties
// by first occurrence (spec §4.7 step 3: "ties broken arbitrarily").
func dominantScene(turns []store.Turn) store.Scene {
	counts := make(map[store.Scene]int, 3)
	order := make([]store.Scene, 0, 3)
	for _, t := range turns {
		if counts[t.SceneType] == 0 {
			order = append(order, t.SceneType)
		}
		counts[t.SceneType]++
	}
	best := order[0]
	for _, s := range order {
		if counts[s] > counts[best] {
			best = s
		}
	}
	return best
}
