package query

import (
	"slices"
	"sync"
	"time"

	"github.com/poiesic/recall/core"
)

// SessionMemory holds per-session conversation history in memory. All methods
// are safe for concurrent use; History returns a copy, so callers never
// observe a partially appended session.
type SessionMemory struct {
	mu       sync.Mutex
	sessions map[string][]core.Turn
}

// NewSessionMemory creates an empty session store.
func NewSessionMemory() *SessionMemory {
	return &SessionMemory{
		sessions: make(map[string][]core.Turn),
	}
}

// Append adds a turn to the end of the session's history, stamping it with
// the current time if the turn carries none.
func (m *SessionMemory) Append(sessionID string, turn core.Turn) {
	if sessionID == "" {
		return
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], turn)
}

// History returns a copy of the session's turns in append order.
// An unknown session yields an empty history.
func (m *SessionMemory) History(sessionID string) []core.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sessions[sessionID])
}

// EndSession discards the session's history. Ending an unknown session is a
// no-op.
func (m *SessionMemory) EndSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
