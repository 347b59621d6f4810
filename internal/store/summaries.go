package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) InsertSummary(ctx context.Context, sum Summary) (Summary, error) {
	if sum.ID == "" {
		sum.ID = uuid.NewString()
	}
	if sum.SceneType == "" {
		sum.SceneType = SceneDaily
	}
	var vecLit any
	if len(sum.Embedding) > 0 {
		vecLit = toVectorLiteral(sum.Embedding)
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO summaries (id, user_id, channel, start_round, end_round, summary, scene_type, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sum.ID, sum.UserID, sum.Channel, sum.StartRound, sum.EndRound, sum.Text, string(sum.SceneType), vecLit)
	if err != nil {
		return Summary{}, fmt.Errorf("store: insert summary: %w", err)
	}
	return sum, nil
}

func (s *PostgresStore) GetRecentSummaries(ctx context.Context, userID, channel string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 2
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, start_round, end_round, summary, scene_type, created_at
FROM summaries
WHERE user_id = $1 AND channel = $2
ORDER BY end_round DESC
LIMIT $3`, userID, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent summaries: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// GetLastSummarizedRound returns the highest end_round already covered by a
// summary for (user, channel), or 0 if none exists (spec §4.7).
func (s *PostgresStore) GetLastSummarizedRound(ctx context.Context, userID, channel string) (int, error) {
	row := s.pool.QueryRow(ctx, `
SELECT COALESCE(MAX(end_round), 0)
FROM summaries
WHERE user_id = $1 AND channel = $2`, userID, channel)
	var last int
	if err := row.Scan(&last); err != nil {
		return 0, fmt.Errorf("store: last summarized round: %w", err)
	}
	return last, nil
}

func (s *PostgresStore) GetUnembeddedSummaries(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, start_round, end_round, summary, scene_type, created_at
FROM summaries
WHERE embedding IS NULL
ORDER BY created_at ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: unembedded summaries: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (s *PostgresStore) UpdateSummaryEmbedding(ctx context.Context, summaryID string, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `UPDATE summaries SET embedding = $2 WHERE id = $1`, summaryID, toVectorLiteral(embedding))
	if err != nil {
		return fmt.Errorf("store: update summary embedding: %w", err)
	}
	return nil
}

func scanSummaries(rows pgx.Rows) ([]Summary, error) {
	var out []Summary
	for rows.Next() {
		var sum Summary
		var scene string
		if err := rows.Scan(&sum.ID, &sum.UserID, &sum.Channel, &sum.StartRound, &sum.EndRound, &sum.Text, &scene, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan summary: %w", err)
		}
		sum.SceneType = Scene(scene)
		out = append(out, sum)
	}
	if out == nil {
		out = []Summary{}
	}
	return out, rows.Err()
}
