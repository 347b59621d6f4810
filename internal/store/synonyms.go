package store

import (
	"context"
	"fmt"
)

// Synonyms loads the full synonym table (spec §3/§4.4), consulted once at
// startup by the Synonym Expander and refreshable via its reload hook.
func (s *PostgresStore) Synonyms(ctx context.Context) ([]SynonymGroup, error) {
	rows, err := s.pool.Query(ctx, `SELECT term, synonyms FROM synonym_map`)
	if err != nil {
		return nil, fmt.Errorf("store: load synonyms: %w", err)
	}
	defer rows.Close()

	var out []SynonymGroup
	for rows.Next() {
		var g SynonymGroup
		if err := rows.Scan(&g.Term, &g.Synonyms); err != nil {
			return nil, fmt.Errorf("store: scan synonym group: %w", err)
		}
		out = append(out, g)
	}
	if out == nil {
		out = []SynonymGroup{}
	}
	return out, rows.Err()
}
