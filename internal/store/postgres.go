package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the production Store Adapter backed by a relational
// database with a vector-type column and a fuzzy-match index (spec §1/§6).
type PostgresStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPostgresStore wraps an already-opened pool. dimensions is the fixed
// embedding width used to size the pgvector column.
func NewPostgresStore(pool *pgxpool.Pool, dimensions int) *PostgresStore {
	return &PostgresStore{pool: pool, dimensions: dimensions}
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Init creates every table this gateway needs if it doesn't already exist,
// following the teacher's CREATE-TABLE-IF-NOT-EXISTS-plus-ALTER-ADD-COLUMN
// convention so re-running Init against an evolving schema is always safe.
func (s *PostgresStore) Init(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("store: postgres store requires a pool")
	}
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("store: enable pgvector: %w", err)
	}

	vecType := "vector"
	if s.dimensions > 0 {
		vecType = fmt.Sprintf("vector(%d)", s.dimensions)
	}

	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS conversations (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    channel TEXT NOT NULL,
    round_number INTEGER NOT NULL,
    user_msg TEXT NOT NULL,
    assistant_msg TEXT NOT NULL,
    scene_type TEXT NOT NULL DEFAULT 'daily',
    topic TEXT NOT NULL DEFAULT '',
    emotion TEXT NOT NULL DEFAULT '',
    weight INTEGER NOT NULL DEFAULT 0,
    embedding %s,
    synced BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS conversations_user_channel_round_idx
    ON conversations(user_id, channel, round_number DESC);
CREATE INDEX IF NOT EXISTS conversations_channel_scene_idx
    ON conversations(channel, scene_type);
CREATE INDEX IF NOT EXISTS conversations_unembedded_idx
    ON conversations(created_at) WHERE embedding IS NULL;

CREATE TABLE IF NOT EXISTS summaries (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    channel TEXT NOT NULL,
    start_round INTEGER NOT NULL,
    end_round INTEGER NOT NULL,
    summary TEXT NOT NULL,
    scene_type TEXT NOT NULL DEFAULT 'daily',
    embedding %s,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS summaries_user_channel_round_idx
    ON summaries(user_id, channel, end_round DESC);

CREATE TABLE IF NOT EXISTS synonym_map (
    term TEXT PRIMARY KEY,
    synonyms TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS diaries (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    content TEXT NOT NULL,
    mood TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS diaries_user_day_idx ON diaries(user_id, (created_at::date));

ALTER TABLE conversations ADD COLUMN IF NOT EXISTS weight INTEGER NOT NULL DEFAULT 0;
`, vecType, vecType)

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}
