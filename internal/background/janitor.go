package background

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"chatmemory-gateway/internal/store"
)

// RunEmbeddingJanitor periodically nulls out turn-level embeddings older
// than evictAfter (spec §4.7 step 6: "turn-level embeddings may be evicted
// after N days via a separate janitor"). Summaries are never evicted. Runs
// until ctx is cancelled.
func RunEmbeddingJanitor(ctx context.Context, st store.Store, evictAfter time.Duration, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			days := int(evictAfter / (24 * time.Hour))
			if days <= 0 {
				days = 7
			}
			n, err := st.EvictOldEmbeddings(ctx, days)
			if err != nil {
				log.Warn().Err(err).Msg("background: embedding eviction failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("evicted", n).Msg("background: evicted stale turn embeddings")
			}
		}
	}
}
