package mcpserver

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Session is a process-local record of an active tool-protocol client
// (spec §3 "Session (tool protocol)"). Sessions are lost on restart; there
// is no cross-process coordination.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastActive time.Time
}

// SessionTable holds every known session, guarded by a mutex since it is
// reached from concurrent request goroutines (spec §5 "shared mutable
// state").
type SessionTable struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionTable returns an empty session table.
func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[string]*Session)}
}

// Create mints a new session id, as done on "initialize".
func (t *SessionTable) Create() *Session {
	now := time.Now()
	s := &Session{ID: uuid.NewString(), CreatedAt: now, LastActive: now}
	t.mu.Lock()
	t.sessions[s.ID] = s
	t.mu.Unlock()
	return s
}

// Touch resolves a session id, auto-registering it (tolerant mode, spec
// §3/§4.9) if it isn't already known, and logging a warning when it does so.
func (t *SessionTable) Touch(id string) *Session {
	if id == "" {
		return t.Create()
	}
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if !ok {
		log.Warn().Str("session_id", id).Msg("mcpserver: unknown session id, auto-registering")
		s = &Session{ID: id, CreatedAt: now}
		t.sessions[id] = s
	}
	s.LastActive = now
	return s
}

// Delete retires a session (spec §4.9 DELETE verb).
func (t *SessionTable) Delete(id string) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}
