package orchestrator

import (
	"sync"
	"time"

	"procurement-assistant/internal/models"
)

// History keeps per-session display turns. Turns are only ever appended;
// Prune removes whole sessions, never single turns.
type History struct {
	mu         sync.RWMutex
	sessions   map[string][]models.ConversationTurn
	lastActive map[string]time.Time
}

func NewHistory() *History {
	return &History{
		sessions:   make(map[string][]models.ConversationTurn),
		lastActive: make(map[string]time.Time),
	}
}

func (h *History) Append(turn models.ConversationTurn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[turn.SessionID] = append(h.sessions[turn.SessionID], turn)
	h.lastActive[turn.SessionID] = turn.Timestamp
}

// Turns returns a copy of the session's turns in append order.
func (h *History) Turns(sessionID string) []models.ConversationTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	turns := h.sessions[sessionID]
	out := make([]models.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// Prune drops sessions whose last turn is older than cutoff and returns how
// many were removed.
func (h *History) Prune(cutoff time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for id, last := range h.lastActive {
		if last.Before(cutoff) {
			delete(h.sessions, id)
			delete(h.lastActive, id)
			removed++
		}
	}
	return removed
}
