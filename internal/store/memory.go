package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store implementation used by tests that
// exercise retrieval, summary, and auto-inject logic without a live
// Postgres instance (ambient test-tooling stack).
type MemoryStore struct {
	mu        sync.Mutex
	turns     []Turn
	summaries []Summary
	diaries   []Diary
	synonyms  []SynonymGroup
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SeedSynonyms lets tests populate the synonym table directly.
func (m *MemoryStore) SeedSynonyms(groups []SynonymGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synonyms = groups
}

func (m *MemoryStore) Close() {}

func (m *MemoryStore) NextRound(ctx context.Context, userID, channel string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, t := range m.turns {
		if t.UserID == userID && t.Channel == channel && t.RoundNumber > max {
			max = t.RoundNumber
		}
	}
	return max + 1, nil
}

func (m *MemoryStore) InsertTurn(ctx context.Context, t Turn) (Turn, bool, error) {
	if !passesSystemMessageFilter(t.UserMsg, t.AssistantMsg) {
		return Turn{}, false, nil
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.SceneType == "" {
		t.SceneType = SceneDaily
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.mu.Lock()
	m.turns = append(m.turns, t)
	m.mu.Unlock()
	return t, true, nil
}

func (m *MemoryStore) GetRecentTurns(ctx context.Context, userID, channel string, limit int) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Turn
	for _, t := range m.turns {
		if t.UserID == userID && t.Channel == channel {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].RoundNumber > matched[j].RoundNumber })
	return capTurns(matched, limit), nil
}

func (m *MemoryStore) GetTurnsInRoundRange(ctx context.Context, userID, channel string, startRound, endRound int) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Turn
	for _, t := range m.turns {
		if t.UserID == userID && t.Channel == channel && t.RoundNumber >= startRound && t.RoundNumber <= endRound {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].RoundNumber < matched[j].RoundNumber })
	return matched, nil
}

func (m *MemoryStore) GetUnembedded(ctx context.Context, limit int) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Turn
	for _, t := range m.turns {
		if len(t.Embedding) == 0 {
			matched = append(matched, t)
		}
	}
	return capTurns(matched, limit), nil
}

func (m *MemoryStore) UpdateEmbedding(ctx context.Context, turnID string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.turns {
		if m.turns[i].ID == turnID {
			m.turns[i].Embedding = embedding
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) IncrementWeight(ctx context.Context, turnID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.turns {
		if m.turns[i].ID == turnID {
			m.turns[i].Weight++
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) RecentByEmotion(ctx context.Context, userID, channel, emotion string, sinceUnix int64, limit int) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Turn
	for _, t := range m.turns {
		if t.UserID == userID && t.Channel == channel && t.Emotion == emotion && t.CreatedAt.Unix() >= sinceUnix {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return capTurns(matched, limit), nil
}

func (m *MemoryStore) InsertSummary(ctx context.Context, s Summary) (Summary, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	m.mu.Lock()
	m.summaries = append(m.summaries, s)
	m.mu.Unlock()
	return s, nil
}

func (m *MemoryStore) GetRecentSummaries(ctx context.Context, userID, channel string, limit int) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Summary
	for _, s := range m.summaries {
		if s.UserID == userID && s.Channel == channel {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].EndRound > matched[j].EndRound })
	return capSummaries(matched, limit), nil
}

func (m *MemoryStore) GetLastSummarizedRound(ctx context.Context, userID, channel string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, s := range m.summaries {
		if s.UserID == userID && s.Channel == channel && s.EndRound > max {
			max = s.EndRound
		}
	}
	return max, nil
}

func (m *MemoryStore) GetUnembeddedSummaries(ctx context.Context, limit int) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Summary
	for _, s := range m.summaries {
		if len(s.Embedding) == 0 {
			matched = append(matched, s)
		}
	}
	return capSummaries(matched, limit), nil
}

func (m *MemoryStore) UpdateSummaryEmbedding(ctx context.Context, summaryID string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.summaries {
		if m.summaries[i].ID == summaryID {
			m.summaries[i].Embedding = embedding
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) FuzzySearch(ctx context.Context, term, channel string, scene Scene, turnLimit, summaryLimit int) ([]Turn, []Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := sceneSet(scene)
	needle := strings.ToLower(term)

	var turns []Turn
	for _, t := range m.turns {
		if t.Channel != channel || !allowed[string(t.SceneType)] {
			continue
		}
		if strings.Contains(strings.ToLower(t.UserMsg), needle) || strings.Contains(strings.ToLower(t.AssistantMsg), needle) {
			turns = append(turns, t)
		}
	}
	sort.Slice(turns, func(i, j int) bool { return turns[i].CreatedAt.After(turns[j].CreatedAt) })

	var summaries []Summary
	for _, s := range m.summaries {
		if s.Channel != channel || !allowed[string(s.SceneType)] {
			continue
		}
		if strings.Contains(strings.ToLower(s.Text), needle) {
			summaries = append(summaries, s)
		}
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].CreatedAt.After(summaries[j].CreatedAt) })

	return capTurns(turns, turnLimit), capSummaries(summaries, summaryLimit), nil
}

// VectorSearch ranks by cosine similarity in-process, mirroring the
// application-side fallback path of the Postgres implementation.
func (m *MemoryStore) VectorSearch(ctx context.Context, embedding []float32, channel string, scene Scene, turnLimit, summaryLimit int) ([]Turn, []Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := sceneSet(scene)

	type scoredTurn struct {
		t     Turn
		score float64
	}
	var st []scoredTurn
	for _, t := range m.turns {
		if t.Channel != channel || !allowed[string(t.SceneType)] || len(t.Embedding) == 0 {
			continue
		}
		st = append(st, scoredTurn{t, cosineSimilarity(embedding, t.Embedding)})
	}
	sort.Slice(st, func(i, j int) bool { return st[i].score > st[j].score })
	turns := make([]Turn, 0, len(st))
	for _, s := range st {
		turns = append(turns, s.t)
	}

	type scoredSummary struct {
		s     Summary
		score float64
	}
	var ss []scoredSummary
	for _, s := range m.summaries {
		if s.Channel != channel || !allowed[string(s.SceneType)] || len(s.Embedding) == 0 {
			continue
		}
		ss = append(ss, scoredSummary{s, cosineSimilarity(embedding, s.Embedding)})
	}
	sort.Slice(ss, func(i, j int) bool { return ss[i].score > ss[j].score })
	summaries := make([]Summary, 0, len(ss))
	for _, s := range ss {
		summaries = append(summaries, s.s)
	}

	return capTurns(turns, turnLimit), capSummaries(summaries, summaryLimit), nil
}

func (m *MemoryStore) Synonyms(ctx context.Context) ([]SynonymGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SynonymGroup{}, m.synonyms...), nil
}

func (m *MemoryStore) SaveDiary(ctx context.Context, userID, content, mood string) (Diary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	today := time.Now().Format("2006-01-02")
	count := 0
	for _, d := range m.diaries {
		if d.UserID == userID && d.CreatedAt.Format("2006-01-02") == today {
			count++
		}
	}
	if count >= maxDiariesPerDay {
		return Diary{}, ErrDiaryLimitReached
	}
	d := Diary{ID: uuid.NewString(), UserID: userID, Content: content, Mood: mood, CreatedAt: time.Now()}
	m.diaries = append(m.diaries, d)
	return d, nil
}

func (m *MemoryStore) EvictOldEmbeddings(ctx context.Context, olderThanDays int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	var n int64
	for i := range m.turns {
		if len(m.turns[i].Embedding) > 0 && m.turns[i].CreatedAt.Before(cutoff) {
			m.turns[i].Embedding = nil
			n++
		}
	}
	return n, nil
}

func sceneSet(scene Scene) map[string]bool {
	out := map[string]bool{}
	for _, s := range sceneFilter(scene) {
		out[s] = true
	}
	return out
}

func capTurns(in []Turn, limit int) []Turn {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	if in == nil {
		return []Turn{}
	}
	return in
}

func capSummaries(in []Summary, limit int) []Summary {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	if in == nil {
		return []Summary{}
	}
	return in
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
