package retrieval

import "chatmemory-gateway/internal/store"

// ItemFromTurn converts a store.Turn into a retrieval Item, for callers
// outside this package that already hold turns (e.g. the auto-inject
// cold-start and emotion rules, spec §4.8).
func ItemFromTurn(t store.Turn, mt MatchType) Item {
	return itemFromTurn(t, mt)
}

// ItemFromSummary is ItemFromTurn's counterpart for summaries.
func ItemFromSummary(s store.Summary, mt MatchType) Item {
	return itemFromSummary(s, mt)
}

func itemFromTurn(t store.Turn, mt MatchType) Item {
	return Item{
		ID:        t.ID,
		Source:    SourceConversation,
		Text:      t.UserMsg + " / " + t.AssistantMsg,
		SceneType: t.SceneType,
		CreatedAt: t.CreatedAt,
		MatchType: mt,
	}
}

func itemFromSummary(s store.Summary, mt MatchType) Item {
	return Item{
		ID:        s.ID,
		Source:    SourceSummary,
		Text:      s.Text,
		SceneType: s.SceneType,
		CreatedAt: s.CreatedAt,
		MatchType: mt,
	}
}

// mergeDedupe implements spec §4.6 step 3: merge by row id, classify each
// survivor vector/keyword/both, with vector hits preceding keyword hits in
// the pre-rerank order and "both" upgrading the label of either arm.
func mergeDedupe(vectorItems, keywordItems []Item) []Item {
	order := make([]string, 0, len(vectorItems)+len(keywordItems))
	byID := make(map[string]*Item, len(vectorItems)+len(keywordItems))

	for _, it := range vectorItems {
		it := it
		it.MatchType = MatchVector
		if _, exists := byID[it.ID]; !exists {
			order = append(order, it.ID)
		}
		byID[it.ID] = &it
	}
	for _, it := range keywordItems {
		if existing, exists := byID[it.ID]; exists {
			existing.MatchType = MatchBoth
			continue
		}
		it := it
		it.MatchType = MatchKeyword
		order = append(order, it.ID)
		byID[it.ID] = &it
	}

	out := make([]Item, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
