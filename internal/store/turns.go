package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NextRound implements spec §4.2's deliberately non-atomic allocation:
// max(round_number)+1 for the (user, channel) pair. Collisions under burst
// writes are accepted; every downstream consumer queries by range and
// tolerates gaps or duplicates.
func (s *PostgresStore) NextRound(ctx context.Context, userID, channel string) (int, error) {
	row := s.pool.QueryRow(ctx, `
SELECT COALESCE(MAX(round_number), 0) + 1
FROM conversations
WHERE user_id = $1 AND channel = $2`, userID, channel)
	var next int
	if err := row.Scan(&next); err != nil {
		return 0, fmt.Errorf("store: next round: %w", err)
	}
	return next, nil
}

// InsertTurn applies the system-message filter (spec §3/§4.2) before
// writing. ok=false means the turn was rejected, not an error.
func (s *PostgresStore) InsertTurn(ctx context.Context, t Turn) (Turn, bool, error) {
	if !passesSystemMessageFilter(t.UserMsg, t.AssistantMsg) {
		return Turn{}, false, nil
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.SceneType == "" {
		t.SceneType = SceneDaily
	}

	var vecLit any
	if len(t.Embedding) > 0 {
		vecLit = toVectorLiteral(t.Embedding)
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO conversations
    (id, user_id, channel, round_number, user_msg, assistant_msg, scene_type, topic, emotion, weight, embedding, synced)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.UserID, t.Channel, t.RoundNumber, t.UserMsg, t.AssistantMsg,
		string(t.SceneType), t.Topic, t.Emotion, t.Weight, vecLit, t.Synced)
	if err != nil {
		return Turn{}, false, fmt.Errorf("store: insert turn: %w", err)
	}
	return t, true, nil
}

func (s *PostgresStore) GetRecentTurns(ctx context.Context, userID, channel string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, round_number, user_msg, assistant_msg, scene_type, topic, emotion, weight, synced, created_at
FROM conversations
WHERE user_id = $1 AND channel = $2
ORDER BY round_number DESC
LIMIT $3`, userID, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

func (s *PostgresStore) GetTurnsInRoundRange(ctx context.Context, userID, channel string, startRound, endRound int) ([]Turn, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, round_number, user_msg, assistant_msg, scene_type, topic, emotion, weight, synced, created_at
FROM conversations
WHERE user_id = $1 AND channel = $2 AND round_number BETWEEN $3 AND $4
ORDER BY round_number ASC`, userID, channel, startRound, endRound)
	if err != nil {
		return nil, fmt.Errorf("store: turns in range: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

func (s *PostgresStore) GetUnembedded(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, round_number, user_msg, assistant_msg, scene_type, topic, emotion, weight, synced, created_at
FROM conversations
WHERE embedding IS NULL
ORDER BY created_at ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: unembedded turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

func (s *PostgresStore) UpdateEmbedding(ctx context.Context, turnID string, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `UPDATE conversations SET embedding = $2 WHERE id = $1`, turnID, toVectorLiteral(embedding))
	if err != nil {
		return fmt.Errorf("store: update embedding: %w", err)
	}
	return nil
}

// IncrementWeight is the citation-tracking bump (spec §4.1). A single
// UPDATE statement is atomic at the row level in Postgres, so unlike the
// original's read-then-write, this cannot lose a concurrent increment.
func (s *PostgresStore) IncrementWeight(ctx context.Context, turnID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE conversations SET weight = weight + 1 WHERE id = $1`, turnID)
	if err != nil {
		return fmt.Errorf("store: increment weight: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentByEmotion(ctx context.Context, userID, channel, emotion string, sinceUnix int64, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, round_number, user_msg, assistant_msg, scene_type, topic, emotion, weight, synced, created_at
FROM conversations
WHERE user_id = $1 AND channel = $2 AND emotion = $3 AND created_at >= to_timestamp($4)
ORDER BY created_at DESC
LIMIT $5`, userID, channel, emotion, sinceUnix, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent by emotion: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

func (s *PostgresStore) EvictOldEmbeddings(ctx context.Context, olderThanDays int) (int64, error) {
	cmd, err := s.pool.Exec(ctx, `
UPDATE conversations
SET embedding = NULL
WHERE embedding IS NOT NULL AND created_at < NOW() - ($1 || ' days')::interval`, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("store: evict old embeddings: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func scanTurns(rows pgx.Rows) ([]Turn, error) {
	var out []Turn
	for rows.Next() {
		var t Turn
		var scene string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Channel, &t.RoundNumber, &t.UserMsg, &t.AssistantMsg,
			&scene, &t.Topic, &t.Emotion, &t.Weight, &t.Synced, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		t.SceneType = Scene(scene)
		out = append(out, t)
	}
	if out == nil {
		out = []Turn{}
	}
	return out, rows.Err()
}

func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
