// Package session provides per-user conversation memory and the keyed
// locks the transport uses to serialize a user's requests. None of this
// is visible to the pipeline core.
package session

import (
	"sync"

	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
)

// Store keeps a bounded conversation window per user. Safe for
// concurrent use.
type Store struct {
	mu        sync.RWMutex
	histories map[string][]model.Turn
	window    int
}

// NewStore creates a store keeping at most window turns per user.
func NewStore(window int) *Store {
	if window < 1 {
		window = 10
	}
	return &Store{
		histories: make(map[string][]model.Turn),
		window:    window,
	}
}

// Get returns a copy of the user's history, oldest first.
func (s *Store) Get(userID string) []model.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.histories[userID]
	out := make([]model.Turn, len(history))
	copy(out, history)
	return out
}

// Append adds a turn to the user's history, evicting the oldest turns
// beyond the window.
func (s *Store) Append(userID string, turn model.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.histories[userID], turn)
	if len(history) > s.window {
		history = history[len(history)-s.window:]
	}
	s.histories[userID] = history
}

// Clear removes the user's history.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.histories, userID)
}
