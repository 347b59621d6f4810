// Package store is the typed Store Adapter described in spec §4.2: access
// to the relational + vector store, with every synchronous driver call
// kept off the request-handling hot path.
package store

import (
	"errors"
	"time"
)

// Scene mirrors the three-way classification from the Scene Detector.
type Scene string

const (
	SceneDaily Scene = "daily"
	ScenePlot  Scene = "plot"
	SceneMeta  Scene = "meta"
)

// Turn is one atomic (user_message, assistant_message) pair (spec §3).
type Turn struct {
	ID          string
	UserID      string
	Channel     string
	RoundNumber int
	UserMsg     string
	AssistantMsg string
	SceneType   Scene
	Topic       string
	Emotion     string
	Weight      int
	Embedding   []float32
	Synced      bool
	CreatedAt   time.Time
}

// Summary covers a contiguous [StartRound, EndRound] window (spec §3).
type Summary struct {
	ID         string
	UserID     string
	Channel    string
	StartRound int
	EndRound   int
	Text       string
	SceneType  Scene
	Embedding  []float32
	CreatedAt  time.Time
}

// SynonymGroup is one row of the synonym table (spec §3/§4.4).
type SynonymGroup struct {
	Term     string
	Synonyms []string
}

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("store: not found")

// ErrDiaryLimitReached signals the 2-per-day diary cap (spec §4.9); callers
// turn this into a guidance message, not an error response.
var ErrDiaryLimitReached = errors.New("store: diary limit reached for today")

// Diary is one entry persisted by the save_diary tool (spec §4.9 and the
// original diary leaf supplemented into this implementation).
type Diary struct {
	ID        string
	UserID    string
	Content   string
	Mood      string
	CreatedAt time.Time
}
