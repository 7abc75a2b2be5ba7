package transcript

import (
	"sync"
)

// Store is the append-only message log of one session.
// It is safe for concurrent use; readers always get copies.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	version  uint64
}

func NewStore() *Store {
	return &Store{
		messages: make([]Message, 0, 16),
	}
}

// Append adds m to the end of the log and bumps the version.
func (s *Store) Append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	s.version++
}

// Snapshot returns the ordered messages. The returned slice is owned by the caller.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recently appended message.
func (s *Store) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// LastOf returns the most recent message with the given role.
func (s *Store) LastOf(role Role) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == role {
			return s.messages[i], true
		}
	}
	return Message{}, false
}

// Version counts appends. Renderers compare it to decide whether to redraw.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
