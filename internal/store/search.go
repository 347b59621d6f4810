package store

import (
	"context"
	"fmt"
)

// sceneFilter returns the set of scene_type values a search for `scene`
// should match, per spec §4.6: `daily` also accepts `plot`; `plot` is
// restricted to `plot`; `meta` (which normally short-circuits before
// reaching the store at all) matches only itself.
func sceneFilter(scene Scene) []string {
	switch scene {
	case SceneDaily:
		return []string{string(SceneDaily), string(ScenePlot)}
	case ScenePlot:
		return []string{string(ScenePlot)}
	default:
		return []string{string(scene)}
	}
}

// FuzzySearch is the keyword arm of hybrid retrieval (spec §4.6): a
// case-insensitive substring match over turns' user/assistant text and
// summaries' text, scoped to channel and scene.
func (s *PostgresStore) FuzzySearch(ctx context.Context, term, channel string, scene Scene, turnLimit, summaryLimit int) ([]Turn, []Summary, error) {
	if turnLimit <= 0 {
		turnLimit = 15
	}
	if summaryLimit <= 0 {
		summaryLimit = 5
	}
	scenes := sceneFilter(scene)
	pattern := "%" + term + "%"

	turnRows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, round_number, user_msg, assistant_msg, scene_type, topic, emotion, weight, synced, created_at
FROM conversations
WHERE channel = $1 AND scene_type = ANY($2)
  AND (user_msg ILIKE $3 OR assistant_msg ILIKE $3)
ORDER BY created_at DESC
LIMIT $4`, channel, scenes, pattern, turnLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("store: fuzzy search turns: %w", err)
	}
	turns, err := scanTurns(turnRows)
	turnRows.Close()
	if err != nil {
		return nil, nil, err
	}

	summaryRows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, start_round, end_round, summary, scene_type, created_at
FROM summaries
WHERE channel = $1 AND scene_type = ANY($2) AND summary ILIKE $3
ORDER BY created_at DESC
LIMIT $4`, channel, scenes, pattern, summaryLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("store: fuzzy search summaries: %w", err)
	}
	summaries, err := scanSummaries(summaryRows)
	summaryRows.Close()
	if err != nil {
		return nil, nil, err
	}

	return turns, summaries, nil
}

// VectorSearch is the vector arm of hybrid retrieval (spec §4.5/§4.6). A
// database-side stored procedure (search_conversations_v2/
// search_summaries_v2, spec §6) is the preferred path in production; this
// implementation always takes the documented fallback — a cosine-distance
// ORDER BY over the newest 3×limit rows with a non-null embedding — since
// no stored-procedure migration tooling is in scope here (see DESIGN.md).
func (s *PostgresStore) VectorSearch(ctx context.Context, embedding []float32, channel string, scene Scene, turnLimit, summaryLimit int) ([]Turn, []Summary, error) {
	if turnLimit <= 0 {
		turnLimit = 15
	}
	if summaryLimit <= 0 {
		summaryLimit = 5
	}
	scenes := sceneFilter(scene)
	vecLit := toVectorLiteral(embedding)

	turnRows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, round_number, user_msg, assistant_msg, scene_type, topic, emotion, weight, synced, created_at
FROM (
	SELECT * FROM conversations
	WHERE channel = $1 AND scene_type = ANY($2) AND embedding IS NOT NULL
	ORDER BY created_at DESC
	LIMIT $5
) AS recent
ORDER BY embedding <=> $3::vector
LIMIT $4`, channel, scenes, vecLit, turnLimit, turnLimit*3)
	if err != nil {
		return nil, nil, fmt.Errorf("store: vector search turns: %w", err)
	}
	turns, err := scanTurns(turnRows)
	turnRows.Close()
	if err != nil {
		return nil, nil, err
	}

	summaryRows, err := s.pool.Query(ctx, `
SELECT id, user_id, channel, start_round, end_round, summary, scene_type, created_at
FROM (
	SELECT * FROM summaries
	WHERE channel = $1 AND scene_type = ANY($2) AND embedding IS NOT NULL
	ORDER BY created_at DESC
	LIMIT $5
) AS recent
ORDER BY embedding <=> $3::vector
LIMIT $4`, channel, scenes, vecLit, summaryLimit, summaryLimit*3)
	if err != nil {
		return nil, nil, fmt.Errorf("store: vector search summaries: %w", err)
	}
	summaries, err := scanSummaries(summaryRows)
	summaryRows.Close()
	if err != nil {
		return nil, nil, err
	}

	return turns, summaries, nil
}
