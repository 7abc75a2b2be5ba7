package turn

import (
	"sync"

	"github.com/go-go-golems/compliance-chat/pkg/transcript"
)

// State is the in-memory state of one session: transcript, busy flag and the
// text being composed. Only the Controller mutates transcript and busy.
type State struct {
	mu         sync.Mutex
	transcript *transcript.Store
	busy       bool
	input      string
	seq        uint64
}

// View is a consistent read of State taken under one lock.
type View struct {
	Messages []transcript.Message
	Busy     bool
	Input    string
	Version  uint64
}

func NewState() *State {
	return &State{transcript: transcript.NewStore()}
}

func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Messages: s.transcript.Snapshot(),
		Busy:     s.busy,
		Input:    s.input,
		Version:  s.transcript.Version(),
	}
}

func (s *State) Messages() []transcript.Message {
	return s.transcript.Snapshot()
}

func (s *State) Len() int {
	return s.transcript.Len()
}

// LastBot returns the most recent bot message, if any.
func (s *State) LastBot() (transcript.Message, bool) {
	return s.transcript.LastOf(transcript.RoleBot)
}

func (s *State) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *State) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetInput replaces the pending composer text.
func (s *State) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// begin appends the user message, clears the composer and raises busy in one step.
// It returns the sequence numbers assigned to the append and the busy change.
func (s *State) begin(user transcript.Message, req Request) (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript.Append(user)
	switch req.Source {
	case SourceSuggested:
		s.input = ""
	default:
		// keep anything typed after this submission was made
		if s.input == req.Query {
			s.input = ""
		}
	}
	s.busy = true
	s.seq += 2
	return s.seq - 1, s.seq
}

// finish appends the bot message and lowers busy in one step.
func (s *State) finish(bot transcript.Message) (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript.Append(bot)
	s.busy = false
	s.seq += 2
	return s.seq - 1, s.seq
}

// ensureIdle lowers busy if a turn exited without reaching finish.
func (s *State) ensureIdle() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		return 0, false
	}
	s.busy = false
	s.seq++
	return s.seq, true
}
