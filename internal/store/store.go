package store

import "context"

// Store is the typed interface the rest of the gateway programs against
// (spec §4.2). Every method is safe to call from a request-handling
// goroutine: a Postgres-backed implementation must never block the calling
// goroutine's OS thread on driver I/O in a way that starves the reactor,
// hence pgx's pool-based, non-blocking-at-the-Go-scheduler-level driver.
type Store interface {
	// InsertTurn persists a turn if it passes the system-message filter and
	// returns ErrNotFound-free success; callers are responsible for having
	// already allocated RoundNumber via NextRound.
	InsertTurn(ctx context.Context, t Turn) (Turn, bool, error)
	NextRound(ctx context.Context, userID, channel string) (int, error)
	GetRecentTurns(ctx context.Context, userID, channel string, limit int) ([]Turn, error)
	GetTurnsInRoundRange(ctx context.Context, userID, channel string, startRound, endRound int) ([]Turn, error)
	GetUnembedded(ctx context.Context, limit int) ([]Turn, error)
	UpdateEmbedding(ctx context.Context, turnID string, embedding []float32) error
	IncrementWeight(ctx context.Context, turnID string) error

	InsertSummary(ctx context.Context, s Summary) (Summary, error)
	GetRecentSummaries(ctx context.Context, userID, channel string, limit int) ([]Summary, error)
	GetLastSummarizedRound(ctx context.Context, userID, channel string) (int, error)
	GetUnembeddedSummaries(ctx context.Context, limit int) ([]Summary, error)
	UpdateSummaryEmbedding(ctx context.Context, summaryID string, embedding []float32) error

	// FuzzySearch implements the keyword arm of hybrid retrieval (spec
	// §4.6): case-insensitive substring match over turns and summaries,
	// filtered by channel and scene.
	FuzzySearch(ctx context.Context, term, channel string, scene Scene, turnLimit, summaryLimit int) ([]Turn, []Summary, error)

	// VectorSearch implements the vector arm (spec §4.5/§4.6).
	VectorSearch(ctx context.Context, embedding []float32, channel string, scene Scene, turnLimit, summaryLimit int) ([]Turn, []Summary, error)

	// RecentByEmotion backs the auto-inject "emotion" rule (spec §4.8).
	RecentByEmotion(ctx context.Context, userID, channel, emotion string, since int64, limit int) ([]Turn, error)

	// Synonyms loads the full synonym table at startup (spec §4.4).
	Synonyms(ctx context.Context) ([]SynonymGroup, error)

	// SaveDiary enforces the two-per-day cap (spec §4.9) and persists the
	// entry; returns ErrDiaryLimitReached when the cap is hit.
	SaveDiary(ctx context.Context, userID, content, mood string) (Diary, error)

	// EvictOldEmbeddings nulls out turn-level embeddings older than
	// olderThanDays (spec §4.7's janitor).
	EvictOldEmbeddings(ctx context.Context, olderThanDays int) (int64, error)

	Close()
}
