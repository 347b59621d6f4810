package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const maxDiariesPerDay = 2

// SaveDiary enforces the "≤2 diaries per calendar day" cap from spec §4.9.
// The query-then-insert is intentionally racy, matching the spec's explicit
// acceptance of that race under concurrent writes.
func (s *PostgresStore) SaveDiary(ctx context.Context, userID, content, mood string) (Diary, error) {
	row := s.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM diaries
WHERE user_id = $1 AND created_at::date = NOW()::date`, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		return Diary{}, fmt.Errorf("store: count diaries: %w", err)
	}
	if count >= maxDiariesPerDay {
		return Diary{}, ErrDiaryLimitReached
	}

	d := Diary{ID: uuid.NewString(), UserID: userID, Content: content, Mood: mood}
	row = s.pool.QueryRow(ctx, `
INSERT INTO diaries (id, user_id, content, mood)
VALUES ($1, $2, $3, $4)
RETURNING created_at`, d.ID, d.UserID, d.Content, d.Mood)
	if err := row.Scan(&d.CreatedAt); err != nil {
		return Diary{}, fmt.Errorf("store: insert diary: %w", err)
	}
	return d, nil
}
