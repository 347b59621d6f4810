package proxycore

import (
	"context"
	"regexp"

	"github.com/rs/zerolog/log"

	"chatmemory-gateway/internal/background"
	"chatmemory-gateway/internal/embedding"
	"chatmemory-gateway/internal/store"
	"chatmemory-gateway/internal/summary"
)

// citationPattern matches the `[[used:<uuid>]]` markers the assistant may
// emit to cite which stored turn informed its answer (spec §4.1 "Citation
// tracking").
var citationPattern = regexp.MustCompile(`\[\[used:([0-9a-fA-F-]{36})\]\]`)

// stripCitations removes every citation marker from text and returns the
// cleaned text plus the referenced ids, in order of appearance.
func stripCitations(text string) (string, []string) {
	var ids []string
	cleaned := citationPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := citationPattern.FindStringSubmatch(m)
		if len(sub) == 2 {
			ids = append(ids, sub[1])
		}
		return ""
	})
	return cleaned, ids
}

// Capturer schedules the three post-response async tasks from spec §4.1:
// persist the turn, trigger the summary pipeline, and compute its
// embedding. None of these may block or fail the request that triggered
// them (spec §4.10).
type Capturer struct {
	store    store.Store
	embedder *embedding.Client
	summary  *summary.Pipeline
	exec     *background.Executor
}

// NewCapturer builds a Capturer.
func NewCapturer(st store.Store, embedder *embedding.Client, summaryPipeline *summary.Pipeline, exec *background.Executor) *Capturer {
	return &Capturer{store: st, embedder: embedder, summary: summaryPipeline, exec: exec}
}

// Capture extracts citations from assistantText, then schedules persistence
// as a detached background task. Once the turn exists, summary-check and
// embedding are spawned as two further, independent background tasks that
// run concurrently with each other (spec §5 "Ordering guarantees", §9
// "Coroutine fan-out for async side tasks").
func (c *Capturer) Capture(userID, channel, userMsg, assistantText string, scene store.Scene) {
	cleanText, citedIDs := stripCitations(assistantText)

	c.exec.Submit("capture_turn", func(ctx context.Context) {
		round, err := c.store.NextRound(ctx, userID, channel)
		if err != nil {
			log.Warn().Err(err).Msg("proxycore: allocate round failed, dropping turn")
			return
		}
		turn, inserted, err := c.store.InsertTurn(ctx, store.Turn{
			UserID: userID, Channel: channel, RoundNumber: round,
			UserMsg: userMsg, AssistantMsg: cleanText, SceneType: scene,
		})
		if err != nil {
			log.Warn().Err(err).Msg("proxycore: insert turn failed, dropping")
			return
		}
		if !inserted {
			return // rejected by the system-message filter; nothing further to do
		}

		for _, id := range citedIDs {
			if err := c.store.IncrementWeight(ctx, id); err != nil {
				log.Warn().Err(err).Str("turn_id", id).Msg("proxycore: citation weight bump failed")
			}
		}

		c.exec.Submit("summary_check", func(ctx context.Context) {
			c.summary.CheckAndGenerate(ctx, userID, channel)
		})

		if c.embedder == nil {
			return
		}
		c.exec.Submit("embed_turn", func(ctx context.Context) {
			vec, err := c.embedder.Embed(ctx, turn.UserMsg+" "+turn.AssistantMsg)
			if err != nil {
				log.Warn().Err(err).Str("turn_id", turn.ID).Msg("proxycore: embedding failed, leaving null")
				return
			}
			if err := c.store.UpdateEmbedding(ctx, turn.ID, vec); err != nil {
				log.Warn().Err(err).Str("turn_id", turn.ID).Msg("proxycore: store embedding failed")
			}
		})
	})
}
