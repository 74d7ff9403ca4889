// Package session keeps per-session conversation history in memory.
package session

import (
	"sync"
	"time"
)

const defaultLimit = 10

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string
	Answer   string
	At       time.Time
}

// Store maps session ids to ordered conversation turns. Sessions are
// created lazily on first append. Appends to the same session serialize
// on a per-session mutex while different sessions proceed in parallel.
// History is bounded to the most recent limit turns.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*state
	limit    int
}

type state struct {
	mu    sync.Mutex
	turns []Turn
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Store{
		sessions: make(map[string]*state),
		limit:    limit,
	}
}

// History returns a copy of the session's turns in chronological order.
// An unknown session yields nil; reading never creates a session.
func (s *Store) History(id string) []Turn {
	s.mu.Lock()
	st, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Turn, len(st.turns))
	copy(out, st.turns)
	return out
}

// Append records a completed turn, evicting the oldest turns beyond the
// store's limit.
func (s *Store) Append(id, question, answer string) {
	st := s.get(id)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.turns = append(st.turns, Turn{Question: question, Answer: answer, At: time.Now().UTC()})
	if len(st.turns) > s.limit {
		st.turns = append(st.turns[:0:0], st.turns[len(st.turns)-s.limit:]...)
	}
}

func (s *Store) get(id string) *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		st = &state{}
		s.sessions[id] = st
	}
	return st
}
